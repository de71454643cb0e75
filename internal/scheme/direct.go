package scheme

import (
	"regexp"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

var directRe = regexp.MustCompile(`^[A-Z]{4}_\d+$`)

// Direct is the scheme of per-sample files whose headers hold the bare
// sequence number. ABCD_78577 is record 78577 of sample ABCD.
type Direct struct{}

func (Direct) Name() string         { return "direct" }
func (Direct) Layout() seqdb.Layout { return seqdb.PerSample }

func (d Direct) Validate(id string) error {
	if !directRe.MatchString(id) {
		return invalid(d, id, "ABCD_1234")
	}
	return nil
}

func (Direct) IsFullLength(id string) bool { return directRe.MatchString(id) }

func (d Direct) Resolve(id string, _ seqdb.Kind) (Resolved, error) {
	if err := d.Validate(id); err != nil {
		return Resolved{}, err
	}
	seq := id[5:]
	return Resolved{Sample: id[:4], SequenceID: seq, Prefix: seq, Full: true}, nil
}

func (d Direct) SampleOf(string) (string, error) { return "", perSampleOnly(d) }

func (Direct) External(sample, sequenceID string) string { return sample + "_" + sequenceID }
