package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"

	"github.com/iudanet/tasktracker/internal/client/storage"
)

var (
	sessionKey  = []byte("current")
	taskRefsKey = []byte("last_list")
)

// SaveSession stores the current session
func (s *Storage) SaveSession(ctx context.Context, session *storage.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := bucket.Put(sessionKey, data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		return nil
	})
}

// GetSession retrieves the current session
func (s *Storage) GetSession(ctx context.Context) (*storage.Session, error) {
	var session *storage.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data := bucket.Get(sessionKey)
		if data == nil {
			return storage.ErrSessionNotFound
		}

		session = &storage.Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession removes the session and the remembered task list (logout)
func (s *Storage) DeleteSession(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		if bucket.Get(sessionKey) == nil {
			return storage.ErrSessionNotFound
		}

		if err := bucket.Delete(sessionKey); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		if refs := tx.Bucket(bucketTaskRefs); refs != nil {
			if err := refs.Delete(taskRefsKey); err != nil {
				return fmt.Errorf("failed to delete task refs: %w", err)
			}
		}

		return nil
	})
}

// SaveTaskRefs запоминает ID задач в порядке последнего вывода
func (s *Storage) SaveTaskRefs(ctx context.Context, ids []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTaskRefs)
		if bucket == nil {
			return fmt.Errorf("task refs bucket not found")
		}

		data, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to marshal task refs: %w", err)
		}

		return bucket.Put(taskRefsKey, data)
	})
}

// ResolveTaskRef переводит номер строки последнего списка в ID задачи
func (s *Storage) ResolveTaskRef(ctx context.Context, ref string) (string, error) {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}

	var id string
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTaskRefs)
		if bucket == nil {
			return fmt.Errorf("task refs bucket not found")
		}

		data := bucket.Get(taskRefsKey)
		if data == nil {
			return storage.ErrTaskRefNotFound
		}

		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("failed to unmarshal task refs: %w", err)
		}

		if n < 1 || n > len(ids) {
			return storage.ErrTaskRefNotFound
		}
		id = ids[n-1]
		return nil
	})
	if err != nil {
		return "", err
	}

	return id, nil
}
