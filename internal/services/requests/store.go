package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/broker/messages"
	"github.com/AutoAid/ServiceDesk/internal/cache"
	"github.com/AutoAid/ServiceDesk/internal/errs"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/pkg/errors"
)

// MechanicResolver — живой справочник механиков. Ссылка в заявке
// слабая: актуальные поля поднимаем отсюда, а не из снимка.
type MechanicResolver interface {
	Get(id string) (*models.Mechanic, bool)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Store — зеркало коллекции заявок. Единственный владелец
// разделяемого состояния: представления и команды ходят только
// через него. Мутации не оптимистичные: сначала ack бэкенда,
// потом запись в зеркало целиком заменяется ответом.
//
// Команды по разным id идут параллельно и не сериализуются.
// Повторная команда по тому же id до завершения первой не
// дедуплицируется: применяется та, что завершилась последней
// (известное допущение для низкочастотного админ-потока).
type Store struct {
	backend  backend.Client
	resolver MechanicResolver

	cache    cache.BytesCache
	cacheTTL time.Duration

	producer Producer
	topic    string

	// Вызывается при NotFound по локальному зеркалу: фоновая
	// пересинхронизация вместо падения.
	onMissing func()

	mu         sync.Mutex
	byID       map[string]*models.ServiceRequest
	order      []string
	selectedID string
	lastErr    string

	inFlight atomic.Int64

	subMu     sync.Mutex
	subs      map[int]func()
	nextSubID int
}

func New(b backend.Client, resolver MechanicResolver, c cache.BytesCache, cacheTTL time.Duration) *Store {
	return &Store{
		backend:  b,
		resolver: resolver,
		cache:    c,
		cacheTTL: cacheTTL,
		byID:     map[string]*models.ServiceRequest{},
		subs:     map[int]func(){},
	}
}

// WithAudit включает публикацию request.updated после успешных мутаций.
func (s *Store) WithAudit(p Producer, topic string) *Store {
	s.producer = p
	s.topic = topic
	return s
}

// WithMissingTrigger задаёт обработчик NotFound (обычно Trigger рефрешера).
func (s *Store) WithMissingTrigger(fn func()) *Store {
	s.onMissing = fn
	return s
}

// Subscribe регистрирует слушателя изменений. Возвращает отписку.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Loading — есть ли команды в полёте (для спиннеров в UI).
func (s *Store) Loading() bool {
	return s.inFlight.Load() > 0
}

// LastError — последняя ошибка команды; единый канал отказов:
// и локальная валидация, и транспорт попадают сюда.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.notify()
}

// command — общая обвязка любой мутации: счётчик в полёте,
// единый канал ошибок, refetch при NotFound, уведомление.
func (s *Store) command(fn func() (*models.ServiceRequest, error)) (*models.ServiceRequest, error) {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	out, err := fn()
	s.mu.Lock()
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil && errors.Is(err, errs.ErrNotFound) && s.onMissing != nil {
		s.onMissing()
	}
	s.notify()
	return out, err
}

func (s *Store) get(id string) (*models.ServiceRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	return r, ok
}

// Current отдаёт запись из зеркала, а при промахе — снапшот из кэша
// (свежий процесс до первого Refresh, либо запись выпала из выдачи).
// Снапшот в зеркало не кладётся: он может быть старее бэкенда,
// источником правды остаётся Refresh. Мутации ходят только по зеркалу.
func (s *Store) Current(ctx context.Context, id string) (*models.ServiceRequest, bool) {
	if r, ok := s.get(id); ok {
		return r, true
	}
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, currentKey(id))
	if err != nil {
		slog.Warn("request cache get", "request_id", id, "error", err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var raw backend.RawServiceRequest
	if err := json.Unmarshal(b, &raw); err != nil {
		slog.Warn("request cache payload", "request_id", id, "error", err.Error())
		return nil, false
	}
	r := backend.NormalizeServiceRequest(&raw)
	if r == nil || r.ID == "" {
		return nil, false
	}
	return r, true
}

// apply кладёт подтверждённую бэкендом запись в зеркало.
// Запись заменяется целиком (copy-on-write), открытая карточка
// обновляется автоматически, т.к. читается по id.
func (s *Store) apply(ctx context.Context, r *models.ServiceRequest) {
	if r == nil || r.ID == "" {
		return
	}
	s.mu.Lock()
	if _, known := s.byID[r.ID]; !known {
		s.order = append(s.order, r.ID)
	}
	s.byID[r.ID] = r
	s.mu.Unlock()

	s.cacheSet(ctx, r)
}

func (s *Store) remove(ctx context.Context, id string) {
	s.mu.Lock()
	if _, ok := s.byID[id]; ok {
		delete(s.byID, id)
		for i, rid := range s.order {
			if rid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		if s.selectedID == id {
			s.selectedID = ""
		}
	}
	s.mu.Unlock()

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Del(ctx, currentKey(id)); err != nil {
			slog.Warn("request cache del", "request_id", id, "error", err.Error())
		}
	}
}

func (s *Store) cacheSet(ctx context.Context, r *models.ServiceRequest) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(backend.DenormalizeServiceRequest(r))
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, currentKey(r.ID), b, s.cacheTTL); err != nil {
		slog.Warn("request cache set", "request_id", r.ID, "error", err.Error())
	}
}

func currentKey(id string) string {
	return fmt.Sprintf("request:%s:current", id)
}

// Refresh затягивает полный список с бэкенда и замещает зеркало.
// Порядок коллекции — порядок выдачи бэкенда.
func (s *Store) Refresh(ctx context.Context) error {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	list, err := s.backend.ListServiceRequests(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.mu.Lock()
	s.byID = make(map[string]*models.ServiceRequest, len(list))
	s.order = make([]string, 0, len(list))
	for _, r := range list {
		if _, dup := s.byID[r.ID]; dup {
			continue
		}
		s.byID[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	if _, ok := s.byID[s.selectedID]; !ok {
		s.selectedID = ""
	}
	s.lastErr = ""
	s.mu.Unlock()

	for _, r := range list {
		s.cacheSet(ctx, r)
	}
	s.notify()
	return nil
}

// audit публикует сообщение аудит-фида. Best effort: отказ брокера
// не откатывает уже применённую мутацию, только логируется.
func (s *Store) audit(ctx context.Context, action string, r *models.ServiceRequest, note string) {
	if s.producer == nil {
		return
	}
	msg := messages.RequestUpdated{
		Action:    action,
		UpdatedAt: time.Now().UTC(),
		Note:      note,
	}
	if r != nil {
		msg.RequestID = r.ID
		if b, err := json.Marshal(backend.DenormalizeServiceRequest(r)); err == nil {
			msg.Request = b
		}
	}
	if action == messages.ActionDelete {
		msg.Deleted = true
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(msg.RequestID), b); err != nil {
		slog.Error("publish request.updated", "request_id", msg.RequestID, "action", action, "error", err.Error())
	}
}

// ApplyAuditMessage применяет событие peer-процесса к зеркалу.
// Собственные события идемпотентны (та же запись ещё раз).
func (s *Store) ApplyAuditMessage(ctx context.Context, msg messages.RequestUpdated) error {
	if msg.RequestID == "" {
		return errors.New("request_id is required")
	}
	if msg.Deleted {
		s.remove(ctx, msg.RequestID)
		s.notify()
		return nil
	}
	var raw backend.RawServiceRequest
	if err := json.Unmarshal(msg.Request, &raw); err != nil {
		return errors.Wrap(err, "unmarshal request payload")
	}
	r := backend.NormalizeServiceRequest(&raw)
	if r == nil || r.ID == "" {
		return errors.New("request payload is empty")
	}
	s.apply(ctx, r)
	s.notify()
	return nil
}
