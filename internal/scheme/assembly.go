package scheme

import (
	"regexp"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

var (
	assemblyFullRe    = regexp.MustCompile(`^scaffold-[A-Z]{4}-\d+-\S{1,60}$`)
	assemblyPartialRe = regexp.MustCompile(`^scaffold-[A-Z]{4}-\d+$`)
	assemblyHeaderRe  = regexp.MustCompile(`^scaffold-[A-Z]{4}-\d+-`)
)

const scaffoldPrefix = "scaffold-"

// Assembly is the scheme of the shared scaffold files. The header keeps the
// sample code, so the identifier is stored unchanged.
type Assembly struct{}

func (Assembly) Name() string         { return "assembly" }
func (Assembly) Layout() seqdb.Layout { return seqdb.MultiSample }

func (a Assembly) Validate(id string) error {
	if !assemblyFullRe.MatchString(id) && !assemblyPartialRe.MatchString(id) {
		return invalid(a, id, "scaffold-ABCD-1234")
	}
	return nil
}

func (Assembly) IsFullLength(id string) bool { return assemblyFullRe.MatchString(id) }

func (a Assembly) Resolve(id string, _ seqdb.Kind) (Resolved, error) {
	if err := a.Validate(id); err != nil {
		return Resolved{}, err
	}
	sample := id[len(scaffoldPrefix) : len(scaffoldPrefix)+4]
	if a.IsFullLength(id) {
		return Resolved{Sample: sample, SequenceID: id, Prefix: id, Full: true}, nil
	}
	return Resolved{Sample: sample, Prefix: id + "-"}, nil
}

func (a Assembly) SampleOf(sequenceID string) (string, error) {
	if !assemblyHeaderRe.MatchString(sequenceID) {
		return "", invalid(a, sequenceID, "scaffold-ABCD-1234-<suffix>")
	}
	return sequenceID[len(scaffoldPrefix) : len(scaffoldPrefix)+4], nil
}

func (Assembly) External(_, sequenceID string) string { return sequenceID }
