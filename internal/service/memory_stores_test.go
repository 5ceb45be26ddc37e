package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/internal/repository"
)

type memoryRequestStore struct {
	mu    sync.Mutex
	items map[string]models.CertificateRequest
}

func newMemoryRequestStore(items ...models.CertificateRequest) *memoryRequestStore {
	s := &memoryRequestStore{items: make(map[string]models.CertificateRequest)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *memoryRequestStore) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[string]models.CertificateRequest, len(s.items))
	for k, v := range s.items {
		saved[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = saved
	}
}

func (s *memoryRequestStore) Create(ctx context.Context, req *models.CertificateRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[req.ID] = *req
	return nil
}

func (s *memoryRequestStore) GetByID(ctx context.Context, id string) (*models.CertificateRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (s *memoryRequestStore) List(ctx context.Context, filter models.CertificateRequestFilter) ([]models.CertificateRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CertificateRequest, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, len(out), nil
}

func (s *memoryRequestStore) UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params repository.UpdateCertificateStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[params.ID]
	if !ok || item.Status != params.From {
		return sql.ErrNoRows
	}
	item.Status = params.To
	item.UpdatedAt = params.UpdatedAt
	if params.ApprovedBy != nil {
		item.ApprovedBy = params.ApprovedBy
		item.ApprovedAt = params.ApprovedAt
	}
	if params.Remarks != nil {
		item.Remarks = params.Remarks
	}
	s.items[params.ID] = item
	return nil
}

func (s *memoryRequestStore) status(id string) models.CertificateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

type memoryIssuedStore struct {
	mu         sync.Mutex
	items      map[string]models.IssuedCertificate
	setPathErr error
}

func newMemoryIssuedStore() *memoryIssuedStore {
	return &memoryIssuedStore{items: make(map[string]models.IssuedCertificate)}
}

func (s *memoryIssuedStore) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[string]models.IssuedCertificate, len(s.items))
	for k, v := range s.items {
		saved[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = saved
	}
}

func (s *memoryIssuedStore) find(match func(models.IssuedCertificate) bool) (*models.IssuedCertificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if match(item) {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryIssuedStore) GetBySourceRequest(ctx context.Context, requestID string) (*models.IssuedCertificate, error) {
	return s.find(func(c models.IssuedCertificate) bool { return c.SourceRequestID == requestID })
}

func (s *memoryIssuedStore) GetByID(ctx context.Context, id string) (*models.IssuedCertificate, error) {
	return s.find(func(c models.IssuedCertificate) bool { return c.ID == id })
}

func (s *memoryIssuedStore) GetByNumber(ctx context.Context, number string) (*models.IssuedCertificate, error) {
	return s.find(func(c models.IssuedCertificate) bool { return c.CertificateNumber == number })
}

func (s *memoryIssuedStore) CreateTx(ctx context.Context, exec sqlx.ExtContext, cert *models.IssuedCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.SourceRequestID == cert.SourceRequestID || item.CertificateNumber == cert.CertificateNumber {
			return fmt.Errorf("duplicate issued certificate %s", cert.CertificateNumber)
		}
	}
	s.items[cert.ID] = *cert
	return nil
}

func (s *memoryIssuedStore) SetPDFPath(ctx context.Context, id, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setPathErr != nil {
		return s.setPathErr
	}
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.PDFPath = &path
	s.items[id] = item
	return nil
}

func (s *memoryIssuedStore) Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || !item.IsValid {
		return sql.ErrNoRows
	}
	item.IsValid = false
	item.RevokedAt = &at
	item.RevokedBy = &revokedBy
	item.RevocationReason = &reason
	s.items[id] = item
	return nil
}

func (s *memoryIssuedStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type memorySequences struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newMemorySequences() *memorySequences {
	return &memorySequences{counters: make(map[string]int64)}
}

func (s *memorySequences) set(scope string, period int, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[fmt.Sprintf("%s:%d", scope, period)] = value
}

func (s *memorySequences) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		saved[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.counters = saved
	}
}

func (s *memorySequences) NextTx(ctx context.Context, exec sqlx.ExtContext, scope string, period int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	key := fmt.Sprintf("%s:%d", scope, period)
	s.counters[key]++
	return s.counters[key], nil
}

type rendererStub struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (r *rendererStub) Render(ctx context.Context, cert *models.IssuedCertificate, req *models.CertificateRequest, signer *Signer) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("%d/%s.pdf", cert.IssuedAt.Year(), cert.CertificateNumber), nil
}
