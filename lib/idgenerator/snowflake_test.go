package idgenerator

import "testing"

func TestMGenerator(t *testing.T) {
	gen := MakeGenerator("a")
	ids := make(map[int64]struct{})
	size := 4096
	for i := 0; i < size; i++ {
		id := gen.NextID()
		_, ok := ids[id]
		if ok {
			t.Errorf("duplicated id: %d", id)
		}
		ids[id] = struct{}{}
	}
}
