package requests

import (
	"context"

	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/broker/messages"
	"github.com/AutoAid/ServiceDesk/internal/errs"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/AutoAid/ServiceDesk/internal/status"
	"github.com/pkg/errors"
)

// Create создаёт заявку (статус pending выставляет бэкенд).
func (s *Store) Create(ctx context.Context, in backend.RequestCreateInput) (*models.ServiceRequest, error) {
	return s.command(func() (*models.ServiceRequest, error) {
		resp, err := s.backend.CreateServiceRequest(ctx, in)
		if err != nil {
			return nil, err
		}
		s.apply(ctx, resp)
		s.audit(ctx, messages.ActionCreate, resp, "")
		return resp, nil
	})
}

// Assign назначает (или переназначает) механика. Статус при этом
// не двигается — назначение и продвижение независимы, можно
// пре-назначить до подтверждения загрузки. Запрещено только для
// терминальных заявок.
func (s *Store) Assign(ctx context.Context, id, mechanicID string) (*models.ServiceRequest, error) {
	return s.command(func() (*models.ServiceRequest, error) {
		cur, ok := s.get(id)
		if !ok {
			return nil, errors.Wrapf(errs.ErrNotFound, "request %s", id)
		}
		if status.IsTerminal(cur.Status) {
			return nil, errors.Wrapf(errs.ErrInvalidState, "cannot assign mechanic in status %s", cur.Status)
		}
		if mechanicID == "" {
			return nil, errors.New("mechanicId is required")
		}
		resp, err := s.backend.AssignMechanic(ctx, id, mechanicID)
		if err != nil {
			return nil, err
		}
		s.apply(ctx, resp)
		s.audit(ctx, messages.ActionAssign, resp, "")
		return resp, nil
	})
}

// AdvanceStatus двигает статус строго на один шаг вперёд либо в
// cancelled. Валидация до сетевого вызова: бэкенд переходы не
// перепроверяет, поэтому граница зеркала — единственный щит от
// прыжков через шаги.
func (s *Store) AdvanceStatus(ctx context.Context, id, target string) (*models.ServiceRequest, error) {
	return s.command(func() (*models.ServiceRequest, error) {
		cur, ok := s.get(id)
		if !ok {
			return nil, errors.Wrapf(errs.ErrNotFound, "request %s", id)
		}
		t, known := status.Canonical(target)
		if !known {
			return nil, errors.Wrapf(errs.ErrInvalidTransition, "unknown status %q", target)
		}
		if status.IsTerminal(cur.Status) {
			return nil, errors.Wrapf(errs.ErrAlreadyTerminal, "request %s is %s", id, cur.Status)
		}
		if !status.CanTransition(cur.Status, t) {
			return nil, errors.Wrapf(errs.ErrInvalidTransition, "from %s to %s", cur.Status, t)
		}
		resp, err := s.backend.UpdateRequestStatus(ctx, id, t)
		if err != nil {
			return nil, err
		}
		s.apply(ctx, resp)
		s.audit(ctx, messages.ActionStatus, resp, "")
		return resp, nil
	})
}

// Cancel — отмена из любого нетерминального статуса. Ссылка на
// механика намеренно не чистится (наблюдаемое поведение исходной
// системы, см. DESIGN.md). Причина уходит только в аудит-фид:
// в REST-контракте для неё поля нет.
func (s *Store) Cancel(ctx context.Context, id, reason string) (*models.ServiceRequest, error) {
	return s.command(func() (*models.ServiceRequest, error) {
		cur, ok := s.get(id)
		if !ok {
			return nil, errors.Wrapf(errs.ErrNotFound, "request %s", id)
		}
		if status.IsTerminal(cur.Status) {
			return nil, errors.Wrapf(errs.ErrAlreadyTerminal, "request %s is %s", id, cur.Status)
		}
		resp, err := s.backend.UpdateRequestStatus(ctx, id, status.Cancelled)
		if err != nil {
			return nil, err
		}
		s.apply(ctx, resp)
		s.audit(ctx, messages.ActionCancel, resp, reason)
		return resp, nil
	})
}

// RecordFeedback сохраняет отзыв. Только по завершённой заявке
// и максимум один раз.
func (s *Store) RecordFeedback(ctx context.Context, id string, fb models.Feedback) (*models.ServiceRequest, error) {
	return s.command(func() (*models.ServiceRequest, error) {
		cur, ok := s.get(id)
		if !ok {
			return nil, errors.Wrapf(errs.ErrNotFound, "request %s", id)
		}
		if cur.Status != status.Completed {
			return nil, errors.Wrapf(errs.ErrInvalidState, "feedback requires completed, got %s", cur.Status)
		}
		if cur.Feedback != nil {
			return nil, errors.Wrapf(errs.ErrDuplicateFeedback, "request %s", id)
		}
		if fb.Rating < 1 || fb.Rating > 5 {
			return nil, errors.Errorf("rating must be between 1 and 5, got %d", fb.Rating)
		}
		resp, err := s.backend.UpdateServiceRequest(ctx, id, backend.RequestUpdate{Feedback: &fb})
		if err != nil {
			return nil, err
		}
		s.apply(ctx, resp)
		s.audit(ctx, messages.ActionFeedback, resp, "")
		return resp, nil
	})
}

// Update — частичное обновление произвольных полей заявки.
func (s *Store) Update(ctx context.Context, id string, upd backend.RequestUpdate) (*models.ServiceRequest, error) {
	return s.command(func() (*models.ServiceRequest, error) {
		if _, ok := s.get(id); !ok {
			return nil, errors.Wrapf(errs.ErrNotFound, "request %s", id)
		}
		resp, err := s.backend.UpdateServiceRequest(ctx, id, upd)
		if err != nil {
			return nil, err
		}
		s.apply(ctx, resp)
		s.audit(ctx, messages.ActionUpdate, resp, "")
		return resp, nil
	})
}

// Delete удаляет заявку на бэкенде и в зеркале.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.command(func() (*models.ServiceRequest, error) {
		cur, ok := s.get(id)
		if !ok {
			return nil, errors.Wrapf(errs.ErrNotFound, "request %s", id)
		}
		if err := s.backend.DeleteServiceRequest(ctx, id); err != nil {
			return nil, err
		}
		s.remove(ctx, id)
		s.audit(ctx, messages.ActionDelete, cur, "")
		return nil, nil
	})
	return err
}

type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkAdvanceStatus применяет переход к каждому id независимо:
// отказ одного не блокирует и не откатывает остальных, ошибки
// агрегируются. Ровно так работают массовые кнопки в дашборде.
func (s *Store) BulkAdvanceStatus(ctx context.Context, ids []string, target string) BulkResult {
	res := BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for _, id := range ids {
		if _, err := s.AdvanceStatus(ctx, id, target); err != nil {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res
}

// ResolveMechanic поднимает актуальную запись механика для заявки
// (живые поля вроде GPS берутся из справочника, не из снимка).
func (s *Store) ResolveMechanic(r *models.ServiceRequest) (*models.Mechanic, bool) {
	if r == nil || r.Mechanic == nil || s.resolver == nil {
		return nil, false
	}
	return s.resolver.Get(r.Mechanic.ID)
}
