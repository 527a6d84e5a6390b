package requests

import (
	"strings"

	"github.com/AutoAid/ServiceDesk/internal/models"
	"github.com/AutoAid/ServiceDesk/internal/status"
)

// Производные представления. Всё пересчитывается от живой коллекции
// на каждый вызов — никаких материализованных счётчиков, которым
// можно разъехаться.

// Filter — конъюнкция предикатов: каждое непустое поле сужает выдачу.
type Filter struct {
	// Подстрока без учёта регистра по id заявки, имени клиента
	// и типу сервиса.
	Query string
	// Точные совпадения (со схлопыванием алиасов статуса).
	Status      string
	Priority    string
	ServiceType string
}

func (f Filter) match(r *models.ServiceRequest) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(r.ID), q) &&
			!strings.Contains(strings.ToLower(r.Customer.Name), q) &&
			!strings.Contains(strings.ToLower(r.ServiceType), q) {
			return false
		}
	}
	if f.Status != "" && status.Normalize(f.Status) != r.Status {
		return false
	}
	if f.Priority != "" && !strings.EqualFold(f.Priority, r.Priority) {
		return false
	}
	if f.ServiceType != "" && !strings.EqualFold(f.ServiceType, r.ServiceType) {
		return false
	}
	return true
}

// List возвращает заявки в порядке выдачи бэкенда. Записи
// copy-on-write: мутировать их на месте нельзя.
func (s *Store) List(f Filter) []*models.ServiceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ServiceRequest, 0, len(s.order))
	for _, id := range s.order {
		if r := s.byID[id]; f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Get(id string) (*models.ServiceRequest, bool) {
	return s.get(id)
}

// Select помечает открытую в UI заявку; после мутаций она
// перечитывается по id, так что карточка не протухает.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	s.selectedID = id
	return true
}

func (s *Store) Selected() (*models.ServiceRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[s.selectedID]
	return r, ok
}

// CountByStatus — бакеты для плиток дашборда. Считает по
// нормализованному статусу: in-progress и in_progress — один бакет.
func CountByStatus(reqs []*models.ServiceRequest) map[string]int {
	out := map[string]int{}
	for _, r := range reqs {
		out[status.Normalize(r.Status)]++
	}
	return out
}

// AverageRating — среднее по заявкам с отзывом. Заявки без отзыва
// не входят ни в числитель, ни в знаменатель; пустой набор даёт 0.
func AverageRating(reqs []*models.ServiceRequest) float64 {
	sum, n := 0, 0
	for _, r := range reqs {
		if r.Feedback != nil {
			sum += r.Feedback.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

type Stats struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"byStatus"`
	AverageRating float64        `json:"averageRating"`
}

func (s *Store) Stats() Stats {
	all := s.List(Filter{})
	return Stats{
		Total:         len(all),
		ByStatus:      CountByStatus(all),
		AverageRating: AverageRating(all),
	}
}
