package mechanics

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AutoAid/ServiceDesk/internal/backend"
	"github.com/AutoAid/ServiceDesk/internal/errs"
	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/pkg/errors"
)

// Directory — зеркало ростера механиков. CRUD ходит через бэкенд
// (ack раньше зеркала), поиск и фильтры считаются на чтении.
type Directory struct {
	backend backend.Client

	mu      sync.Mutex
	byID    map[string]*models.Mechanic
	order   []string
	lastErr string

	inFlight atomic.Int64

	subMu     sync.Mutex
	subs      map[int]func()
	nextSubID int
}

func New(b backend.Client) *Directory {
	return &Directory{
		backend: b,
		byID:    map[string]*models.Mechanic{},
		subs:    map[int]func(){},
	}
}

func (d *Directory) Subscribe(fn func()) func() {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	id := d.nextSubID
	d.nextSubID++
	d.subs[id] = fn
	return func() {
		d.subMu.Lock()
		defer d.subMu.Unlock()
		delete(d.subs, id)
	}
}

func (d *Directory) notify() {
	d.subMu.Lock()
	fns := make([]func(), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *Directory) Loading() bool {
	return d.inFlight.Load() > 0
}

func (d *Directory) LastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Directory) ClearError() {
	d.mu.Lock()
	d.lastErr = ""
	d.mu.Unlock()
	d.notify()
}

func (d *Directory) command(fn func() error) error {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	err := fn()
	d.mu.Lock()
	if err != nil {
		d.lastErr = err.Error()
	} else {
		d.lastErr = ""
	}
	d.mu.Unlock()
	d.notify()
	return err
}

// Refresh замещает ростер выдачей бэкенда (её же порядком).
func (d *Directory) Refresh(ctx context.Context) error {
	return d.command(func() error {
		list, err := d.backend.ListMechanics(ctx)
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.byID = make(map[string]*models.Mechanic, len(list))
		d.order = make([]string, 0, len(list))
		for _, m := range list {
			if _, dup := d.byID[m.ID]; dup {
				continue
			}
			d.byID[m.ID] = m
			d.order = append(d.order, m.ID)
		}
		d.mu.Unlock()
		return nil
	})
}

// Get — резолвер для слабых ссылок из заявок.
func (d *Directory) Get(id string) (*models.Mechanic, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.byID[id]
	return m, ok
}

// Upsert создаёт или обновляет механика (по наличию ID).
func (d *Directory) Upsert(ctx context.Context, m *models.Mechanic) (*models.Mechanic, error) {
	var out *models.Mechanic
	err := d.command(func() error {
		var resp *models.Mechanic
		var err error
		if m.ID == "" {
			resp, err = d.backend.CreateMechanic(ctx, m)
		} else {
			if _, ok := d.Get(m.ID); !ok {
				return errors.Wrapf(errs.ErrNotFound, "mechanic %s", m.ID)
			}
			resp, err = d.backend.UpdateMechanic(ctx, m)
		}
		if err != nil {
			return err
		}
		d.mu.Lock()
		if _, known := d.byID[resp.ID]; !known {
			d.order = append(d.order, resp.ID)
		}
		d.byID[resp.ID] = resp
		d.mu.Unlock()
		out = resp
		return nil
	})
	return out, err
}

// Remove удаляет механика. Висячие ссылки из активных заявок не
// чистим — так ведёт себя исходная система (см. DESIGN.md).
func (d *Directory) Remove(ctx context.Context, id string) error {
	return d.command(func() error {
		if _, ok := d.Get(id); !ok {
			return errors.Wrapf(errs.ErrNotFound, "mechanic %s", id)
		}
		if err := d.backend.DeleteMechanic(ctx, id); err != nil {
			return err
		}
		d.mu.Lock()
		delete(d.byID, id)
		for i, mid := range d.order {
			if mid == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
		d.mu.Unlock()
		return nil
	})
}

// List возвращает ростер в порядке выдачи бэкенда.
func (d *Directory) List() []*models.Mechanic {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*models.Mechanic, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Search — подстрока без учёта регистра по имени, телефону,
// локации и национальному ID. Пустой запрос — весь ростер.
// Порядок стабильный, без пересортировки.
func (d *Directory) Search(query string) []*models.Mechanic {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return d.List()
	}
	out := []*models.Mechanic{}
	for _, m := range d.List() {
		if strings.Contains(strings.ToLower(m.Name), q) ||
			strings.Contains(strings.ToLower(m.Phone), q) ||
			strings.Contains(strings.ToLower(m.LocationLabel()), q) ||
			strings.Contains(strings.ToLower(m.NationalID), q) {
			out = append(out, m)
		}
	}
	return out
}

// AvailableForAssignment — кандидаты на назначение. Advisory-фильтр:
// назначить busy/offline механика зеркало не запрещает.
func (d *Directory) AvailableForAssignment() []*models.Mechanic {
	out := []*models.Mechanic{}
	for _, m := range d.List() {
		if m.Availability == models.AvailabilityAvailable {
			out = append(out, m)
		}
	}
	return out
}
