package reactor

import "runtime"

// goroutineID returns the current goroutine's numeric ID by parsing the
// header of runtime.Stack's output. It is used to answer
// Strand.RunningInThisThread() without threading an explicit context
// through every call site — exactly the technique the teacher module uses
// for its single-loop isLoopThread() check, generalized here to a pool of
// workers each with their own currently-assigned strand.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
