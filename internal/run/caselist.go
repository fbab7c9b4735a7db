package run

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReadCaseList loads the newline-delimited receipt numbers to track.
// Blank lines are skipped and the result is sorted so runs process cases
// in a deterministic order.
func ReadCaseList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("case list: %w", err)
	}
	defer f.Close()

	var cases []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cases = append(cases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("case list: %w", err)
	}
	sort.Strings(cases)
	return cases, nil
}
