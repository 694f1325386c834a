package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

// MemoryStore is an in-memory connector and change-queue store
type MemoryStore struct {
	mu         sync.Mutex
	connectors map[string]*types.DriveConnector
	rows       []*types.ChangeQueueRow
	nextRowID  int64

	// Hooks run before the default behavior; a non-nil error aborts it
	InsertChangeRowsHook    func(rows []*types.ChangeQueueRow) error
	UpdateConnectorSyncHook func(id string, update types.SyncUpdate) error
	InsertConnectorHook     func(c *types.DriveConnector) error

	Updates []types.SyncUpdate
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{connectors: make(map[string]*types.DriveConnector)}
}

func cloneConnector(c *types.DriveConnector) *types.DriveConnector {
	out := *c
	if c.ChangeToken != nil {
		token := *c.ChangeToken
		out.ChangeToken = &token
	}
	return &out
}

func notFound(msg string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeConnectorNotFound, msg).Build())
}

// PutConnector stores c directly
func (s *MemoryStore) PutConnector(c *types.DriveConnector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectors[c.ID] = cloneConnector(c)
}

func (s *MemoryStore) GetConnector(ctx context.Context, id string) (*types.DriveConnector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connectors[id]
	if !ok {
		return nil, notFound("connector not found: " + id)
	}
	return cloneConnector(c), nil
}

func (s *MemoryStore) FindConnector(ctx context.Context, orgID, folderID string) (*types.DriveConnector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.connectors {
		if c.OrgID == orgID && c.FolderID == folderID {
			return cloneConnector(c), nil
		}
	}
	return nil, notFound("no connector for folder " + folderID)
}

func (s *MemoryStore) InsertConnector(ctx context.Context, c *types.DriveConnector) error {
	if s.InsertConnectorHook != nil {
		if err := s.InsertConnectorHook(c); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.connectors {
		if existing.OrgID == c.OrgID && existing.FolderID == c.FolderID {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeConnectorExists,
				"connector already exists for folder "+c.FolderID).Build())
		}
	}
	s.connectors[c.ID] = cloneConnector(c)
	return nil
}

func (s *MemoryStore) UpdateConnectorSync(ctx context.Context, id string, update types.SyncUpdate) error {
	if s.UpdateConnectorSyncHook != nil {
		if err := s.UpdateConnectorSyncHook(id, update); err != nil {
			return err
		}
	}
	if update.ChangeToken != nil && *update.ChangeToken == "" {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"change token cannot be cleared").Build())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connectors[id]
	if !ok {
		return notFound("connector not found: " + id)
	}
	s.Updates = append(s.Updates, update)
	if update.ChangeToken != nil {
		token := *update.ChangeToken
		c.ChangeToken = &token
	}
	if update.Baseline != "" {
		c.Baseline = update.Baseline
	}
	if update.LastBackfillAt != nil {
		t := *update.LastBackfillAt
		c.LastBackfillAt = &t
	}
	if update.LastUpdateAt != nil {
		t := *update.LastUpdateAt
		c.LastUpdateAt = &t
	}
	return nil
}

// InsertChangeRows appends rows atomically; an empty file id rejects the batch
func (s *MemoryStore) InsertChangeRows(ctx context.Context, rows []*types.ChangeQueueRow) error {
	if s.InsertChangeRowsHook != nil {
		if err := s.InsertChangeRowsHook(rows); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if r.FileID == "" || !r.ChangeType.Valid() {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
				"queue row requires a file id and a valid change type").Build())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.nextRowID++
		stored := *r
		stored.ID = s.nextRowID
		stored.CreatedAt = time.Now().UTC()
		s.rows = append(s.rows, &stored)
	}
	return nil
}

// Rows returns every queued row in insertion order
func (s *MemoryStore) Rows() []*types.ChangeQueueRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.ChangeQueueRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Connector returns the stored connector or nil
func (s *MemoryStore) Connector(id string) *types.DriveConnector {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connectors[id]
	if !ok {
		return nil
	}
	return cloneConnector(c)
}

// ConnectorCount returns the number of stored connectors
func (s *MemoryStore) ConnectorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connectors)
}
