package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
)

// Manager aggregates all Badger-backed storage implementations behind the
// StorageManager interface.
type Manager struct {
	db *BadgerDB

	rawItems         interfaces.RawItemStorage
	moderationLogs   interfaces.ModerationLogStorage
	complaints       interfaces.ComplaintStorage
	interventionLogs interfaces.InterventionLogStorage
	contents         interfaces.ContentStorage
	keyValue         interfaces.KeyValueStorage
	users            interfaces.UserStorage
}

// NewManager opens the database and wires up all storage implementations
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:               db,
		rawItems:         NewRawItemStorage(db, logger),
		moderationLogs:   NewModerationLogStorage(db, logger),
		complaints:       NewComplaintStorage(db, logger),
		interventionLogs: NewInterventionLogStorage(db, logger),
		contents:         NewContentStorage(db, logger),
		keyValue:         NewKVStorage(db, logger),
		users:            NewUserStorage(db, logger),
	}, nil
}

func (m *Manager) RawItems() interfaces.RawItemStorage                 { return m.rawItems }
func (m *Manager) ModerationLogs() interfaces.ModerationLogStorage     { return m.moderationLogs }
func (m *Manager) Complaints() interfaces.ComplaintStorage             { return m.complaints }
func (m *Manager) InterventionLogs() interfaces.InterventionLogStorage { return m.interventionLogs }
func (m *Manager) Contents() interfaces.ContentStorage                 { return m.contents }
func (m *Manager) KeyValue() interfaces.KeyValueStorage                { return m.keyValue }
func (m *Manager) Users() interfaces.UserStorage                       { return m.users }

// DB exposes the underlying connection for the queue, which shares the
// same Badger instance.
func (m *Manager) DB() *BadgerDB {
	return m.db
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
