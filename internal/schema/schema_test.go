package schema

import "testing"

func TestRegistryKnowsStructuralAndHeaderTypes(t *testing.T) {
	r := NewRegistry()

	for _, rt := range []string{"HDR", "GRH", "GRT", "TRL"} {
		if !r.IsStructural(rt) {
			t.Errorf("expected %s to be structural", rt)
		}
	}
	for _, rt := range []string{"WRK", "REV", "NWR", "ISW", "ISR"} {
		if !r.IsTransactionHeader(rt) {
			t.Errorf("expected %s to be a transaction header", rt)
		}
	}
	if r.IsStructural("SWR") || r.IsTransactionHeader("SWR") {
		t.Errorf("SWR is neither structural nor a transaction header")
	}
}

// TestFieldOffsetsNoGapsOrOverlaps verifies the round-trip offset
// invariant from spec.md §8: for every (version, record_type) the field
// specs are contiguous, in ascending order, with no gaps or overlaps.
func TestFieldOffsetsNoGapsOrOverlaps(t *testing.T) {
	r := NewRegistry()

	for _, v := range []Version{Version21, Version22} {
		table := r.byVersion[v]
		for recordType, s := range table {
			expectedStart := 1
			for _, f := range s.Fields {
				if f.Start != expectedStart {
					t.Errorf("%s/%s: field %q starts at %d, expected %d (gap or overlap)",
						v, recordType, f.Name, f.Start, expectedStart)
				}
				if f.Length <= 0 {
					t.Errorf("%s/%s: field %q has non-positive length %d", v, recordType, f.Name, f.Length)
				}
				expectedStart = f.End() + 1
			}
			if s.Width != expectedStart-1 {
				t.Errorf("%s/%s: declared width %d does not match last field end %d",
					v, recordType, s.Width, expectedStart-1)
			}
		}
	}
}

func TestSupportsVersion(t *testing.T) {
	if !SupportsVersion(Version21) || !SupportsVersion(Version22) {
		t.Fatal("expected both 02.10 and 02.20 to be supported")
	}
	if SupportsVersion("01.00") {
		t.Fatal("did not expect 01.00 to be supported")
	}
}

func TestUnknownRecordType(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Schema(Version22, "XYZ"); ok {
		t.Fatal("expected XYZ to be unknown")
	}
}
