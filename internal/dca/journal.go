package dca

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/jvdwalt/dcabot/internal/domain"
)

const (
	runRecordKeyPrefix  = "dca_run_"
	walSegmentThreshold = 1000
	walMaxSegments      = 100
	walDirPermissions   = 0o755
)

// runRecord is one journaled invocation.
type runRecord struct {
	At       time.Time       `json:"at"`
	Outcomes []outcomeRecord `json:"outcomes"`
}

type outcomeRecord struct {
	Currency string `json:"currency"`
	Pair     string `json:"pair"`
	Outcome  string `json:"outcome"`
	OrderID  string `json:"orderId,omitempty"`
	Budget   string `json:"budget"`
}

// Journal is an append-only audit log of run outcomes. It is never
// consulted for idempotency decisions: the exchange's order records
// stay the system of record, the journal only answers "what did this
// process decide and when".
type Journal struct {
	wal *gowal.Wal
}

// NewJournal opens (creating if needed) the journal under dir.
func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, walDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure journal directory %s", dir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "log_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open run journal")
	}
	return &Journal{wal: wal}, nil
}

// Append records the outcomes of one run.
func (j *Journal) Append(at time.Time, outcomes []domain.RunOutcome) error {
	record := runRecord{At: at.UTC(), Outcomes: make([]outcomeRecord, 0, len(outcomes))}
	for _, o := range outcomes {
		record.Outcomes = append(record.Outcomes, outcomeRecord{
			Currency: o.Currency,
			Pair:     o.Pair.Symbol(),
			Outcome:  o.Outcome.String(),
			OrderID:  o.OrderID,
			Budget:   o.Budget.String(),
		})
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal run record")
	}

	nextIndex := j.wal.CurrentIndex() + 1
	return j.wal.Write(nextIndex, runRecordKeyPrefix+at.UTC().Format(time.RFC3339), data)
}

// Runs replays all journaled run records in write order.
func (j *Journal) Runs() ([]runRecord, error) {
	var records []runRecord
	for msg := range j.wal.Iterator() {
		var record runRecord
		if err := json.Unmarshal(msg.Value, &record); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal run record %s", msg.Key)
		}
		records = append(records, record)
	}
	return records, nil
}

func (j *Journal) Close() error {
	return j.wal.Close()
}
