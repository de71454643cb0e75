package scheme

import (
	"regexp"
	"strings"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

var (
	oasesFullRe       = regexp.MustCompile(`^[A-Z]{4}_Locus_\d+_Transcript_\d+/\d+_Confidence_[\d.]+_Length_\d+(_\d+)?$`)
	oasesTranscriptRe = regexp.MustCompile(`^[A-Z]{4}_Locus_\d+_Transcript_\d+$`)
	oasesLocusRe      = regexp.MustCompile(`^[A-Z]{4}_Locus_\d+$`)
	oasesORFSuffixRe  = regexp.MustCompile(`Confidence_[\d.]+_Length_\d+(_\d+)$`)
)

// Oases is the scheme of the per-sample transcript assemblies. Headers drop
// the sample code; protein headers carry an extra _<n> for each reading
// frame of the transcript.
type Oases struct{}

func (Oases) Name() string         { return "oases" }
func (Oases) Layout() seqdb.Layout { return seqdb.PerSample }

func (o Oases) Validate(id string) error {
	if !oasesFullRe.MatchString(id) && !oasesTranscriptRe.MatchString(id) && !oasesLocusRe.MatchString(id) {
		return invalid(o, id, "ABCD_Locus_1_Transcript_4")
	}
	return nil
}

func (Oases) IsFullLength(id string) bool { return oasesFullRe.MatchString(id) }

func (o Oases) Resolve(id string, kind seqdb.Kind) (Resolved, error) {
	if err := o.Validate(id); err != nil {
		return Resolved{}, err
	}
	sample, seq := id[:4], id[5:]

	switch {
	case oasesFullRe.MatchString(id):
		if kind == seqdb.RNA {
			seq = stripORF(seq)
		}
		return Resolved{Sample: sample, SequenceID: seq, Prefix: seq, Full: true}, nil
	case oasesTranscriptRe.MatchString(id):
		return Resolved{Sample: sample, Prefix: seq + "/"}, nil
	default:
		return Resolved{Sample: sample, Prefix: seq + "_"}, nil
	}
}

// stripORF removes the reading frame suffix, leaving the transcript id.
func stripORF(seq string) string {
	if !strings.HasPrefix(seq, "Locus_") {
		return seq
	}
	m := oasesORFSuffixRe.FindStringSubmatchIndex(seq)
	if m == nil {
		return seq
	}
	return seq[:m[2]]
}

func (o Oases) SampleOf(string) (string, error) { return "", perSampleOnly(o) }

func (Oases) External(sample, sequenceID string) string { return sample + "_" + sequenceID }
