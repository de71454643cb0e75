package sqlstore

// One table holds the references of every dataset; dataset_label and
// sequence_kind select the partition.
const schema = `
CREATE TABLE IF NOT EXISTS fasta_files (
	id            INTEGER PRIMARY KEY,
	path          TEXT    NOT NULL,
	dataset_label TEXT    NOT NULL,
	sample_id     TEXT    NOT NULL DEFAULT '',
	sequence_kind INTEGER NOT NULL DEFAULT 0,
	committed     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS fasta_files_dataset
	ON fasta_files (dataset_label, sequence_kind, sample_id);

CREATE TABLE IF NOT EXISTS sequence_refs (
	file_id       INTEGER NOT NULL REFERENCES fasta_files (id) ON DELETE CASCADE,
	id            INTEGER NOT NULL,
	dataset_label TEXT    NOT NULL,
	sequence_kind INTEGER NOT NULL,
	sample_id     TEXT    NOT NULL,
	sequence_id   TEXT    NOT NULL,
	start_offset  INTEGER NOT NULL,
	length        INTEGER NOT NULL,
	PRIMARY KEY (file_id, id)
);

CREATE INDEX IF NOT EXISTS sequence_refs_lookup
	ON sequence_refs (dataset_label, sequence_kind, sample_id, sequence_id);

CREATE TABLE IF NOT EXISTS sample_blocks (
	file_id       INTEGER NOT NULL REFERENCES fasta_files (id) ON DELETE CASCADE,
	dataset_label TEXT    NOT NULL,
	sequence_kind INTEGER NOT NULL,
	sample_id     TEXT    NOT NULL,
	n             INTEGER NOT NULL,
	start_offset  INTEGER NOT NULL,
	end_offset    INTEGER NOT NULL,
	PRIMARY KEY (file_id, sample_id)
);

CREATE INDEX IF NOT EXISTS sample_blocks_lookup
	ON sample_blocks (dataset_label, sequence_kind, sample_id);

CREATE TABLE IF NOT EXISTS generations (
	dataset_label TEXT    PRIMARY KEY,
	generation    INTEGER NOT NULL
);
`

type fileRow struct {
	ID      uint32 `db:"id"`
	Path    string `db:"path"`
	Dataset string `db:"dataset_label"`
	Sample  string `db:"sample_id"`
	Kind    uint8  `db:"sequence_kind"`
}

type refRow struct {
	SequenceID  string `db:"sequence_id"`
	FileID      uint32 `db:"file_id"`
	StartOffset int64  `db:"start_offset"`
	Length      int64  `db:"length"`
}

type blockRow struct {
	FileID      uint32 `db:"file_id"`
	Dataset     string `db:"dataset_label"`
	Kind        uint8  `db:"sequence_kind"`
	Sample      string `db:"sample_id"`
	N           int    `db:"n"`
	StartOffset int64  `db:"start_offset"`
	EndOffset   int64  `db:"end_offset"`
}
