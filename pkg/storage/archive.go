package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"site-scraper/pkg/logging"
	"site-scraper/pkg/models"
	"site-scraper/pkg/utils"
)

const sessionKeyPrefix = "session:"

// ArchiveEntry is the persisted record of one finished crawl session.
type ArchiveEntry struct {
	SessionID  string        `json:"sessionId"`
	SeedURL    string        `json:"seedUrl"`
	State      string        `json:"state"`
	FinishedAt time.Time     `json:"finishedAt"`
	Report     models.Report `json:"report"`
}

// Archive keeps the history of past crawl sessions in a local Badger
// database so earlier reports stay inspectable after the process exits.
type Archive struct {
	db  *badger.DB
	log *logrus.Entry
}

func OpenArchive(stateDir string, log *logrus.Entry) (*Archive, error) {
	dbPath := filepath.Join(stateDir, "archive")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = logging.NewBadgerLogrusAdapter(log.WithField("component", "badger"))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive at %q: %v", utils.ErrDatabase, dbPath, err)
	}
	log.WithField("path", dbPath).Info("Session archive opened")
	return &Archive{db: db, log: log}, nil
}

func (a *Archive) SaveReport(entry ArchiveEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encoding archive entry %q: %v", utils.ErrDatabase, entry.SessionID, err)
	}
	key := []byte(sessionKeyPrefix + entry.SessionID)
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("%w: saving archive entry %q: %v", utils.ErrDatabase, entry.SessionID, err)
	}
	a.log.WithFields(logrus.Fields{
		"session_id": entry.SessionID,
		"state":      entry.State,
	}).Info("Session archived")
	return nil
}

// Get returns the archived entry for a session ID, or utils.ErrNotFound.
func (a *Archive) Get(sessionID string) (*ArchiveEntry, error) {
	var entry ArchiveEntry
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: session %q", utils.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: loading session %q: %v", utils.ErrDatabase, sessionID, err)
	}
	return &entry, nil
}

// List returns all archived sessions, newest first.
func (a *Archive) List() ([]ArchiveEntry, error) {
	var entries []ArchiveEntry
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasPrefix(string(item.Key()), sessionKeyPrefix) {
				continue
			}
			var entry ArchiveEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				a.log.WithField("key", string(item.Key())).WithError(err).Warn("Skipping unreadable archive entry")
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing sessions: %v", utils.ErrDatabase, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FinishedAt.After(entries[j].FinishedAt)
	})
	return entries, nil
}

func (a *Archive) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("%w: closing archive: %v", utils.ErrDatabase, err)
	}
	return nil
}
