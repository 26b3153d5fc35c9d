// Package redisstore keeps books in Redis. Each book is a JSON document
// under <prefix>:<id>; a sorted set scored by ID preserves insertion order
// and an INCR counter hands out IDs.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"bookflow/pkg/book"
)

// maxTxRetries bounds optimistic update retries under contention.
const maxTxRetries = 5

// Store implements book.Repository on top of Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, opts *redis.Options, prefix string) (*Store, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return New(client, prefix), nil
}

// New wraps an existing client. Keys are namespaced under prefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "livros"
	}
	return &Store{client: client, prefix: prefix}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) seqKey() string { return s.prefix + ":seq" }
func (s *Store) indexKey() string { return s.prefix + ":index" }
func (s *Store) docKey(id int) string { return s.prefix + ":" + strconv.Itoa(id) }

// List returns all books ordered by ID.
func (s *Store) List(ctx context.Context) ([]book.Book, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}
	books := make([]book.Book, 0, len(ids))
	if len(ids) == 0 {
		return books, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.prefix + ":" + id
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and MGET.
			continue
		}
		var b book.Book
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		books = append(books, b)
	}
	return books, nil
}

// Get retrieves a book by ID.
func (s *Store) Get(ctx context.Context, id int) (book.Book, error) {
	return s.get(ctx, s.client, id)
}

// Create validates f, reserves an ID and stores the document.
func (s *Store) Create(ctx context.Context, f book.Fields) (book.Book, error) {
	b, err := f.Book()
	if err != nil {
		return book.Book{}, err
	}
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return book.Book{}, fmt.Errorf("next id: %w", err)
	}
	b.ID = int(id)
	data, err := json.Marshal(b)
	if err != nil {
		return book.Book{}, fmt.Errorf("encode livro: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(b.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(b.ID), Member: strconv.Itoa(b.ID)})
		return nil
	})
	if err != nil {
		return book.Book{}, fmt.Errorf("store livro %d: %w", b.ID, err)
	}
	return b, nil
}

// Update applies f under WATCH so a concurrent write or delete of the same
// book aborts and retries the transaction.
func (s *Store) Update(ctx context.Context, id int, f book.Fields) (book.Book, error) {
	key := s.docKey(id)
	var updated book.Book
	txf := func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = current.Apply(f)
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encode livro: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return book.Book{}, err
		}
		return updated, nil
	}
	return book.Book{}, fmt.Errorf("update livro %d: %w", id, redis.TxFailedErr)
}

// Delete removes the document and its index entry in one transaction.
func (s *Store) Delete(ctx context.Context, id int) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.docKey(id))
		pipe.ZRem(ctx, s.indexKey(), strconv.Itoa(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete livro %d: %w", id, err)
	}
	if del.Val() == 0 {
		return book.ErrNotFound
	}
	return nil
}

func (s *Store) get(ctx context.Context, c redis.Cmdable, id int) (book.Book, error) {
	data, err := c.Get(ctx, s.docKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return book.Book{}, book.ErrNotFound
	}
	if err != nil {
		return book.Book{}, fmt.Errorf("get livro %d: %w", id, err)
	}
	var b book.Book
	if err := json.Unmarshal(data, &b); err != nil {
		return book.Book{}, fmt.Errorf("decode livro %d: %w", id, err)
	}
	return b, nil
}
