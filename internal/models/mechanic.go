package models

import "time"

// Статусы доступности механика. Только available предлагается
// для нового назначения, но жёстко это не блокируется.
const (
	AvailabilityAvailable = "available"
	AvailabilityBusy      = "busy"
	AvailabilityOffline   = "offline"
)

type Mechanic struct {
	ID               string
	Name             string
	Phone            string
	NationalID       string
	EmergencyContact string

	Address Location

	// Набор скилл-тегов. Словарь фиксированный (~12 категорий),
	// но как закрытое множество не энфорсится.
	Specializations []string

	Availability string
	Experience   string
	JoiningDate  string

	// Серверные read-only проекции; клиент их не мутирует.
	Rating            float64
	CompletedServices int

	// Живая телеметрия, last-write-wins с бэкенда. Только отображение.
	CurrentLocation *GeoPoint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LocationLabel — "город, штат" для списков и поиска.
// Если одна из частей пустая, показываем то, что есть.
func (m *Mechanic) LocationLabel() string {
	city := m.Address.City
	state := m.Address.State
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	case state != "":
		return state
	default:
		return m.Address.Street
	}
}

func (m *Mechanic) Clone() *Mechanic {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Specializations = append([]string(nil), m.Specializations...)
	if m.Address.Coordinates != nil {
		g := *m.Address.Coordinates
		cp.Address.Coordinates = &g
	}
	if m.CurrentLocation != nil {
		g := *m.CurrentLocation
		cp.CurrentLocation = &g
	}
	return &cp
}
