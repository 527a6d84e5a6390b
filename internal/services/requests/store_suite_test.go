package requests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/backend/fake"
	"github.com/AutoAid/ServiceDesk/internal/broker/messages"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/AutoAid/ServiceDesk/internal/status"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// flakyBackend прокидывает вызовы в fake и позволяет подложить
// транспортную ошибку на мутирующие операции.
type flakyBackend struct {
	backend.Client
	err error
}

func (f *flakyBackend) UpdateRequestStatus(ctx context.Context, id, st string) (*models.ServiceRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Client.UpdateRequestStatus(ctx, id, st)
}

func (f *flakyBackend) AssignMechanic(ctx context.Context, id, mechanicID string) (*models.ServiceRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Client.AssignMechanic(ctx, id, mechanicID)
}

type publishedMsg struct {
	topic string
	key   string
	msg   messages.RequestUpdated
}

type fakeProducer struct {
	published []publishedMsg
	err       error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	var msg messages.RequestUpdated
	if err := json.Unmarshal(value, &msg); err != nil {
		return err
	}
	p.published = append(p.published, publishedMsg{topic: topic, key: string(key), msg: msg})
	return nil
}

type memCache struct {
	m map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}
func (c *memCache) Del(ctx context.Context, key string) error {
	delete(c.m, key)
	return nil
}

type StoreSuite struct {
	suite.Suite

	backend  *fake.Backend
	flaky    *flakyBackend
	producer *fakeProducer
	cache    *memCache
	store    *Store
}

func (s *StoreSuite) SetupTest() {
	s.backend = fake.New()
	s.flaky = &flakyBackend{Client: s.backend}
	s.producer = &fakeProducer{}
	s.cache = &memCache{m: map[string][]byte{}}
	s.store = New(s.flaky, nil, s.cache, time.Minute).
		WithAudit(s.producer, "service-desk.request.updated")
}

func (s *StoreSuite) create(name string) *models.ServiceRequest {
	r, err := s.store.Create(context.Background(), backend.RequestCreateInput{
		Customer: models.Customer{Name: name},
	})
	s.Require().NoError(err)
	return r
}

func (s *StoreSuite) TestErrorChannel_TransportAndValidationShareIt() {
	ctx := context.Background()
	r := s.create("Asha")
	s.Require().Empty(s.store.LastError())

	// транспортный отказ: зеркало не трогаем
	s.flaky.err = errors.New("backend: 502")
	_, err := s.store.AdvanceStatus(ctx, r.ID, status.Assigned)
	s.Require().Error(err)
	s.Require().Contains(s.store.LastError(), "502")
	got, ok := s.store.Get(r.ID)
	s.Require().True(ok)
	s.Require().Equal(status.Pending, got.Status)

	// локальная валидация пишет в тот же канал
	s.flaky.err = nil
	_, err = s.store.AdvanceStatus(ctx, r.ID, status.Completed)
	s.Require().Error(err)
	s.Require().Contains(s.store.LastError(), status.Completed)

	// успешная команда сбрасывает ошибку
	_, err = s.store.AdvanceStatus(ctx, r.ID, status.Assigned)
	s.Require().NoError(err)
	s.Require().Empty(s.store.LastError())

	s.flaky.err = errors.New("backend: 502")
	_, _ = s.store.AdvanceStatus(ctx, r.ID, status.Accepted)
	s.store.ClearError()
	s.Require().Empty(s.store.LastError())
}

func (s *StoreSuite) TestAudit_PublishedPerMutation() {
	ctx := context.Background()
	r := s.create("Asha")
	_, err := s.store.AdvanceStatus(ctx, r.ID, status.Assigned)
	s.Require().NoError(err)
	_, err = s.store.Cancel(ctx, r.ID, "duplicate booking")
	s.Require().NoError(err)

	s.Require().Len(s.producer.published, 3)
	actions := []string{}
	for _, p := range s.producer.published {
		s.Require().Equal("service-desk.request.updated", p.topic)
		s.Require().Equal(r.ID, p.key) // ключ партиционирования — id заявки
		actions = append(actions, p.msg.Action)
	}
	s.Require().Equal([]string{messages.ActionCreate, messages.ActionStatus, messages.ActionCancel}, actions)

	// причина отмены едет только в аудите
	s.Require().Equal("duplicate booking", s.producer.published[2].msg.Note)
	s.Require().NotEmpty(s.producer.published[2].msg.Request)
}

func (s *StoreSuite) TestAudit_BrokerFailureDoesNotRollBack() {
	ctx := context.Background()
	r := s.create("Asha")

	s.producer.err = errors.New("kafka down")
	got, err := s.store.AdvanceStatus(ctx, r.ID, status.Assigned)
	s.Require().NoError(err)
	s.Require().Equal(status.Assigned, got.Status)
}

func (s *StoreSuite) TestAudit_DeleteCarriesTombstone() {
	ctx := context.Background()
	r := s.create("Asha")
	s.Require().NoError(s.store.Delete(ctx, r.ID))

	last := s.producer.published[len(s.producer.published)-1]
	s.Require().Equal(messages.ActionDelete, last.msg.Action)
	s.Require().True(last.msg.Deleted)
	s.Require().Equal(r.ID, last.msg.RequestID)
}

func (s *StoreSuite) TestCache_SnapshotLifecycle() {
	ctx := context.Background()
	r := s.create("Asha")

	b, ok := s.cache.m[currentKey(r.ID)]
	s.Require().True(ok)
	var raw backend.RawServiceRequest
	s.Require().NoError(json.Unmarshal(b, &raw))
	s.Require().Equal(r.ID, raw.ID)
	s.Require().Equal(status.Pending, raw.Status)

	_, err := s.store.AdvanceStatus(ctx, r.ID, status.Assigned)
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal(s.cache.m[currentKey(r.ID)], &raw))
	s.Require().Equal(status.Assigned, raw.Status)

	s.Require().NoError(s.store.Delete(ctx, r.ID))
	_, ok = s.cache.m[currentKey(r.ID)]
	s.Require().False(ok)
}

func (s *StoreSuite) TestCurrent_FallsBackToCachedSnapshot() {
	ctx := context.Background()
	r := s.create("Asha")

	// свежий процесс с тем же кэшем: зеркало пустое до первого Refresh
	fresh := New(s.flaky, nil, s.cache, time.Minute)
	_, ok := fresh.Get(r.ID)
	s.Require().False(ok)

	got, ok := fresh.Current(ctx, r.ID)
	s.Require().True(ok)
	s.Require().Equal(r.ID, got.ID)
	s.Require().Equal(status.Pending, got.Status)

	// снапшот не резурректит запись в зеркале
	_, ok = fresh.Get(r.ID)
	s.Require().False(ok)

	// мимо кэша — промах
	_, ok = fresh.Current(ctx, "ghost")
	s.Require().False(ok)

	// зеркало важнее снапшота
	_, err := s.store.AdvanceStatus(ctx, r.ID, status.Assigned)
	s.Require().NoError(err)
	got, ok = s.store.Current(ctx, r.ID)
	s.Require().True(ok)
	s.Require().Equal(status.Assigned, got.Status)
}

func (s *StoreSuite) TestCurrent_NoCacheConfigured() {
	ctx := context.Background()
	bare := New(s.flaky, nil, nil, 0)
	_, ok := bare.Current(ctx, "sr-1")
	s.Require().False(ok)
}

func (s *StoreSuite) TestApplyAuditMessage_PeerUpsertAndDelete() {
	ctx := context.Background()

	payload, err := json.Marshal(backend.RawServiceRequest{
		ID:     "sr-peer",
		Status: "in-progress",
		Customer: &backend.RawCustomer{
			Name: "Remote Op",
		},
	})
	s.Require().NoError(err)

	err = s.store.ApplyAuditMessage(ctx, messages.RequestUpdated{
		RequestID: "sr-peer",
		Action:    messages.ActionStatus,
		Request:   payload,
	})
	s.Require().NoError(err)

	got, ok := s.store.Get("sr-peer")
	s.Require().True(ok)
	// сырые статусы нормализуются на входе
	s.Require().Equal(status.InProgress, got.Status)

	err = s.store.ApplyAuditMessage(ctx, messages.RequestUpdated{
		RequestID: "sr-peer",
		Action:    messages.ActionDelete,
		Deleted:   true,
	})
	s.Require().NoError(err)
	_, ok = s.store.Get("sr-peer")
	s.Require().False(ok)
}

func (s *StoreSuite) TestApplyAuditMessage_Invalid() {
	ctx := context.Background()
	s.Require().Error(s.store.ApplyAuditMessage(ctx, messages.RequestUpdated{}))
	s.Require().Error(s.store.ApplyAuditMessage(ctx, messages.RequestUpdated{
		RequestID: "sr-1",
		Request:   []byte("{broken"),
	}))
}

func (s *StoreSuite) TestSubscribe_NotifiedOnCommands() {
	ctx := context.Background()
	var seen int
	unsub := s.store.Subscribe(func() { seen++ })

	r := s.create("Asha")
	s.Require().Greater(seen, 0)

	before := seen
	unsub()
	_, err := s.store.AdvanceStatus(ctx, r.ID, status.Assigned)
	s.Require().NoError(err)
	s.Require().Equal(before, seen)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
