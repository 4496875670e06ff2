// SPDX-License-Identifier: MIT
package audio

import "runtime"

type runtimeStats struct {
	heap uint64
}

func (s *runtimeStats) read() {
	runtime.GC()
	runtime.GC()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.heap = m.HeapAlloc
}
