package tinylfu

import "testing"

func TestFrequencySketchIncrementSaturates(t *testing.T) {
	fs := newFrequencySketch(64)
	h := hashKey("hot-key")

	for i := 0; i < 20; i++ {
		fs.increment(h)
	}
	if got := fs.frequency(h); got != maxCounterValue {
		t.Fatalf("frequency = %d, want saturated at %d", got, maxCounterValue)
	}
}

func TestFrequencySketchDistinguishesColdFromHot(t *testing.T) {
	fs := newFrequencySketch(1024)
	hot := hashKey("hot")
	cold := hashKey("cold")

	for i := 0; i < 8; i++ {
		fs.increment(hot)
	}

	if fs.frequency(hot) <= fs.frequency(cold) {
		t.Fatalf("hot frequency %d should exceed cold frequency %d", fs.frequency(hot), fs.frequency(cold))
	}
}

func TestFrequencySketchAgingHalves(t *testing.T) {
	fs := newFrequencySketch(16)
	h := hashKey("k")
	for i := 0; i < 10; i++ {
		fs.increment(h)
	}
	before := fs.frequency(h)
	fs.reset()
	after := fs.frequency(h)

	if after > before {
		t.Fatalf("aging increased frequency: before=%d after=%d", before, after)
	}
	if before >= 2 && after > before/2+1 {
		t.Fatalf("aging did not roughly halve: before=%d after=%d", before, after)
	}
}

func TestFrequencySketchSampleSizeTriggersReset(t *testing.T) {
	fs := newFrequencySketch(8)
	h := hashKey("k")
	for i := int64(0); i < fs.sampleSize-1; i++ {
		fs.increment(hashKey(i))
	}
	if fs.size >= fs.sampleSize {
		t.Fatalf("size reached sampleSize early: %d/%d", fs.size, fs.sampleSize)
	}
	fs.increment(h)
	if fs.size >= fs.sampleSize {
		t.Fatalf("reset did not halve size: %d still >= sampleSize %d", fs.size, fs.sampleSize)
	}
}
