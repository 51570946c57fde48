package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const CollectionNotifications = "notifications"

// FirestoreStore keeps notifications in the back office's Firestore
// collection, shared with the web client.
type FirestoreStore struct {
	db *firestore.Client
}

func NewFirestoreStore(db *firestore.Client) *FirestoreStore {
	return &FirestoreStore{db: db}
}

func (s *FirestoreStore) collection() *firestore.CollectionRef {
	return s.db.Collection(CollectionNotifications)
}

func (s *FirestoreStore) query(q ListQuery) firestore.Query {
	query := s.collection().
		Where("expiresAt", ">", q.Now).
		OrderBy("expiresAt", firestore.Desc).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)

	if q.After != nil {
		query = query.StartAfter(q.After.ExpiresTime(), q.After.CreatedTime(), q.After.ID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

func (s *FirestoreStore) Create(ctx context.Context, n *Notification) error {
	if _, err := s.collection().Doc(n.ID).Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*Notification, error) {
	doc, err := s.collection().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return decodeDocument(doc.Ref.ID, doc.Data()), nil
}

func (s *FirestoreStore) List(ctx context.Context, q ListQuery) ([]*Notification, error) {
	iter := s.query(q).Documents(ctx)
	defer iter.Stop()

	var result []*Notification
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list notifications: %w", err)
		}
		result = append(result, decodeDocument(doc.Ref.ID, doc.Data()))
	}
	return result, nil
}

func (s *FirestoreStore) Watch(ctx context.Context, q ListQuery, onChange func([]*Notification)) error {
	snapshots := s.query(q).Snapshots(ctx)
	defer snapshots.Stop()

	for {
		snap, err := snapshots.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) || ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("notification listener failed: %w", err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("failed to read notification snapshot: %w", err)
		}

		result := make([]*Notification, 0, len(docs))
		for _, doc := range docs {
			result = append(result, decodeDocument(doc.Ref.ID, doc.Data()))
		}
		slog.Debug("notification snapshot received", "docs", len(result), "changes", len(snap.Changes))
		onChange(result)
	}
}

func (s *FirestoreStore) AddReader(ctx context.Context, id, uid string) error {
	return s.updateReaders(ctx, id, firestore.ArrayUnion(uid))
}

func (s *FirestoreStore) RemoveReader(ctx context.Context, id, uid string) error {
	return s.updateReaders(ctx, id, firestore.ArrayRemove(uid))
}

func (s *FirestoreStore) updateReaders(ctx context.Context, id string, value any) error {
	_, err := s.collection().Doc(id).Update(ctx, []firestore.Update{
		{Path: "readBy", Value: value},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update notification readers: %w", err)
	}
	return nil
}

func (s *FirestoreStore) AddReaders(ctx context.Context, ids []string, uid string) error {
	if len(ids) == 0 {
		return nil
	}

	bulkWriter := s.db.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bulkWriter.Update(s.collection().Doc(id), []firestore.Update{
			{Path: "readBy", Value: firestore.ArrayUnion(uid)},
		})
		if err != nil {
			bulkWriter.End()
			return fmt.Errorf("failed to add update to bulk writer: %w", err)
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to mark %d notifications read: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
