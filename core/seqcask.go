package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/0xRadioAc7iv/go-seqcask/internal/lock"
	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
	"github.com/0xRadioAc7iv/go-seqcask/internal/record"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// SeqCask is an append-only, log structured sequence index.
//
// Every change is appended to the active datafile; the KeyDir is the
// in-memory view of all committed changes and is rebuilt from the datafiles
// on Start. Entries of a file only reach the KeyDir when the file's commit
// record has been written and synced.
type SeqCask struct {
	lockFile        *os.File
	activeDataFile  *os.File
	activeOffset    int64
	syncCancel      context.CancelFunc
	sizeCheckCancel context.CancelFunc
	keyDir          *KeyDir
	pending         map[uint32]*pendingFile
	logger          *log.Logger

	dataMu   sync.Mutex   // for activeDataFile + activeOffset
	keyDirMu sync.RWMutex // for keyDir + pending
	txnMu    sync.Mutex   // orders commit and truncate records with their keyDir updates

	DirectoryPath       string
	MaximumDatafileSize int
	SyncInterval        uint
	SizeCheckInterval   uint
	Logger              *log.Logger
}

var _ seqdb.Store = (*SeqCask)(nil)

// pendingFile is the state of a file between Begin and Commit.
type pendingFile struct {
	file    seqdb.FileRecord
	entries []seqdb.Entry
	blocks  []seqdb.SampleBlock
}

func (sc *SeqCask) Start() error {
	sc.logger = logging.OrDiscard(sc.Logger).With("component", "seqcask")

	if sc.DirectoryPath == "" {
		sc.DirectoryPath = DefaultDirectoryPath
	}
	if sc.MaximumDatafileSize <= 0 {
		sc.MaximumDatafileSize = DefaultDataFileSizeMB * OneMegabyte
	}

	lf, err := lock.LockDirectory(sc.DirectoryPath)
	if err != nil {
		return fmt.Errorf("lock %s: %w", sc.DirectoryPath, err)
	}
	sc.lockFile = lf

	if err := sc.openDataDirectory(); err != nil {
		sc.unlock()
		return fmt.Errorf("open data directory: %w", err)
	}

	files, err := sc.scanForDatafiles()
	if err != nil {
		sc.unlock()
		return fmt.Errorf("scan datafiles: %w", err)
	}

	sc.keyDir = NewKeyDir()
	sc.pending = make(map[uint32]*pendingFile)

	if err := sc.loadDataFromDatafilesToKeyDir(files); err != nil {
		sc.unlock()
		return fmt.Errorf("replay datafiles: %w", err)
	}

	latest := -1
	if len(files) > 0 {
		latest = files[len(files)-1]
	}
	f, number, err := sc.createNewActiveDatafile(latest)
	if err != nil {
		sc.unlock()
		return fmt.Errorf("open active datafile: %w", err)
	}

	// Sets the offset to the end of the active datafile
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		sc.unlock()
		return err
	}
	sc.activeOffset = offset
	sc.activeDataFile = f

	if sc.SyncInterval > 0 {
		syncCtx, syncCancel := context.WithCancel(context.Background())
		sc.syncCancel = syncCancel
		go sc.syncDiskInterval(syncCtx, sc.SyncInterval)
	}

	if sc.SizeCheckInterval > 0 {
		sizeCheckCtx, sizeCheckCancel := context.WithCancel(context.Background())
		sc.sizeCheckCancel = sizeCheckCancel
		go sc.activeDatafileSizeCheckInterval(sizeCheckCtx, sc.SizeCheckInterval)
	}

	sc.logger.Info("index opened",
		"dir", sc.DirectoryPath, "datafiles", len(files), "active", number,
		"files", len(sc.keyDir.files), "entries", len(sc.keyDir.entries))
	return nil
}

func (sc *SeqCask) dataDir() string {
	return filepath.Join(sc.DirectoryPath, DataDirName)
}

func (sc *SeqCask) datafilePath(number int) string {
	return filepath.Join(sc.dataDir(), fmt.Sprintf("%s%d%s", DataFileSuffix, number, DataFileExt))
}

func (sc *SeqCask) openDataDirectory() error {
	err := os.MkdirAll(sc.dataDir(), 0o755)
	if err != nil {
		return err
	}
	return nil
}

// scanForDatafiles returns the numbers of the datafiles in ascending order.
func (sc *SeqCask) scanForDatafiles() ([]int, error) {
	entries, err := os.ReadDir(sc.dataDir())
	if err != nil {
		return nil, err
	}

	var numbers []int
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != DataFileExt {
			continue
		}
		n, ok := datafileNumber(entry.Name())
		if !ok {
			sc.logger.Warn("ignoring unexpected file in data directory", "name", entry.Name())
			continue
		}
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)
	return numbers, nil
}

func datafileNumber(name string) (int, bool) {
	base := strings.TrimSuffix(name, DataFileExt)
	numberStr, ok := strings.CutPrefix(base, DataFileSuffix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(numberStr)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (sc *SeqCask) loadDataFromDatafilesToKeyDir(numbers []int) error {
	for _, n := range numbers {
		if err := sc.readDatafile(sc.datafilePath(n)); err != nil {
			return err
		}
	}

	for id, p := range sc.pending {
		sc.logger.Warn("discarding uncommitted file", "file_id", id, "path", p.file.Path, "entries", len(p.entries))
		delete(sc.pending, id)
	}
	return nil
}

// readDatafile replays one datafile. A torn or corrupt tail is truncated
// away; it can only be the remains of an interrupted write.
func (sc *SeqCask) readDatafile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	r := &countingReader{r: bufioReader(f)}
	for {
		recordStartOffset := r.n

		rec, err := record.ReadRecord(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, record.ErrChecksum) || errors.Is(err, record.ErrCorrupt) {
				sc.logger.Warn("truncating corrupt datafile tail", "path", path, "offset", recordStartOffset, "err", err)
				return truncateAt(f, recordStartOffset)
			}
			return err
		}

		if err := sc.replay(rec); err != nil {
			sc.logger.Warn("truncating datafile at undecodable record", "path", path, "offset", recordStartOffset, "err", err)
			return truncateAt(f, recordStartOffset)
		}
	}
}

// replay applies one record to the KeyDir and the pending set.
func (sc *SeqCask) replay(rec *record.DiskRecord) error {
	switch rec.Kind {
	case record.KindFile:
		file, err := record.DecodeFileRecord(rec.Value)
		if err != nil {
			return err
		}
		sc.keyDir.reserve(file.ID)
		sc.pending[rec.Txn] = &pendingFile{file: file}

	case record.KindEntry:
		key, err := record.DecodeKey(rec.Key)
		if err != nil {
			return err
		}
		loc, err := record.DecodeLocation(rec.Value)
		if err != nil {
			return err
		}
		if p, ok := sc.pending[rec.Txn]; ok {
			p.entries = append(p.entries, seqdb.Entry{Key: key, Location: loc})
		}

	case record.KindBlock:
		sb, err := record.DecodeSampleBlock(rec.Value)
		if err != nil {
			return err
		}
		if p, ok := sc.pending[rec.Txn]; ok {
			p.blocks = append(p.blocks, sb)
		}

	case record.KindCommit:
		if p, ok := sc.pending[rec.Txn]; ok {
			sc.keyDir.apply(p)
			delete(sc.pending, rec.Txn)
		}

	case record.KindAbort:
		delete(sc.pending, rec.Txn)

	case record.KindTruncate:
		sc.truncatePending(string(rec.Key))
		sc.keyDir.truncate(string(rec.Key))
	}
	return nil
}

func (sc *SeqCask) truncatePending(dataset string) {
	for id, p := range sc.pending {
		if p.file.Dataset == dataset {
			delete(sc.pending, id)
		}
	}
}

// createNewActiveDatafile reopens the latest datafile if it still has room,
// or starts the next one.
func (sc *SeqCask) createNewActiveDatafile(latest int) (*os.File, int, error) {
	if latest >= 0 {
		f, err := os.OpenFile(sc.datafilePath(latest), os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, 0, err
		}

		// Checks the size of the previous latest file, if it's size is less than
		// the allowed maximum, then returns it, saving disk space and prevents
		// from creating too many datafiles
		overTheAllowedMaxSize, err := sc.isDatafileSizeOverTheAllowedMaximum(f)
		if err != nil {
			f.Close()
			return nil, 0, err
		}
		if !overTheAllowedMaxSize {
			return f, latest, nil
		}
		if err := f.Close(); err != nil {
			return nil, 0, err
		}
	}

	next := latest + 1
	f, err := os.OpenFile(sc.datafilePath(next), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, 0, err
	}
	return f, next, nil
}

func (sc *SeqCask) rotateActiveDatafile() error {
	sc.dataMu.Lock()
	defer sc.dataMu.Unlock()

	latest, ok := datafileNumber(filepath.Base(sc.activeDataFile.Name()))
	if !ok {
		return fmt.Errorf("unexpected active datafile name %s", sc.activeDataFile.Name())
	}

	if err := sc.activeDataFile.Sync(); err != nil {
		return fmt.Errorf("sync on rotation: %w", err)
	}
	if err := sc.activeDataFile.Close(); err != nil {
		return fmt.Errorf("close on rotation: %w", err)
	}

	f, number, err := sc.createNewActiveDatafile(latest)
	if err != nil {
		return err
	}
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	sc.activeDataFile = f
	sc.activeOffset = offset
	sc.logger.Debug("rotated active datafile", "number", number)
	return nil
}

// writeToActiveFile appends data and, when sync is set, flushes the datafile
// to disk before returning.
func (sc *SeqCask) writeToActiveFile(data []byte, sync bool) error {
	sc.dataMu.Lock()
	defer sc.dataMu.Unlock()

	if sc.activeDataFile == nil {
		return errors.New("index is not open")
	}

	n, err := sc.activeDataFile.WriteAt(data, sc.activeOffset)
	sc.activeOffset += int64(n)
	if err != nil {
		return err
	}
	if sync {
		return sc.activeDataFile.Sync()
	}
	return nil
}

func (sc *SeqCask) appendRecords(recs []record.DiskRecord, sync bool) error {
	var buf []byte
	for i := range recs {
		encoded, err := record.EncodeRecordToBytes(&recs[i])
		if err != nil {
			return err
		}
		buf = append(buf, encoded...)
	}
	return sc.writeToActiveFile(buf, sync)
}

func (sc *SeqCask) isDatafileSizeOverTheAllowedMaximum(datafile *os.File) (bool, error) {
	fileInfo, err := datafile.Stat()
	if err != nil {
		return false, fmt.Errorf("stat active datafile: %w", err)
	}
	return fileInfo.Size() >= int64(sc.MaximumDatafileSize), nil
}

func (sc *SeqCask) activeDatafileSizeCheckInterval(ctx context.Context, seconds uint) {
	ticker := time.NewTicker(time.Duration(seconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sc.dataMu.Lock()
			ok, err := sc.isDatafileSizeOverTheAllowedMaximum(sc.activeDataFile)
			sc.dataMu.Unlock()
			if err != nil {
				sc.logger.Error("checking active datafile size", "err", err)
				continue
			}

			if ok {
				if err := sc.rotateActiveDatafile(); err != nil {
					sc.logger.Error("rotating active datafile", "err", err)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (sc *SeqCask) syncDiskInterval(ctx context.Context, seconds uint) {
	ticker := time.NewTicker(time.Duration(seconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sc.dataMu.Lock()
			err := sc.activeDataFile.Sync()
			sc.dataMu.Unlock()

			if err != nil {
				sc.logger.Error("syncing active datafile", "err", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (sc *SeqCask) Stop() error {
	if sc.syncCancel != nil {
		sc.syncCancel()
	}
	if sc.sizeCheckCancel != nil {
		sc.sizeCheckCancel()
	}

	var errs []error

	sc.dataMu.Lock()
	if sc.activeDataFile != nil {
		if err := sc.activeDataFile.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := sc.activeDataFile.Close(); err != nil {
			errs = append(errs, err)
		}
		sc.activeDataFile = nil
	}
	sc.dataMu.Unlock()

	if err := sc.unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close implements seqdb.Store.
func (sc *SeqCask) Close() error { return sc.Stop() }

func (sc *SeqCask) unlock() error {
	if sc.lockFile == nil {
		return nil
	}
	err := lock.UnlockDirectory(sc.lockFile)
	sc.lockFile = nil
	return err
}

func truncateAt(f *os.File, offset int64) error {
	if err := f.Truncate(offset); err != nil {
		return err
	}
	return f.Sync()
}
