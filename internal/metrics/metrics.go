package metrics

import "sync/atomic"

var casesFetched int64
var casesFailed int64
var recordsChanged int64

func IncFetched() { atomic.AddInt64(&casesFetched, 1) }
func IncFailed()  { atomic.AddInt64(&casesFailed, 1) }

func AddChanged(n int64) { atomic.AddInt64(&recordsChanged, n) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"cases_fetched":   atomic.LoadInt64(&casesFetched),
		"cases_failed":    atomic.LoadInt64(&casesFailed),
		"records_changed": atomic.LoadInt64(&recordsChanged),
	}
}
