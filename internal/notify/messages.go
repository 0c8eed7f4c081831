package notify

import (
	"fmt"
	"strings"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
)

// Text is a title/description pair.
type Text struct {
	Title       string
	Description string
}

// Catalog holds the localized notification texts and the few calendar
// strings the screens render next to them.
type Catalog struct {
	Locale string

	BookingCreated       Text
	BookingFailed        Text
	AppointmentUpdated   Text
	AppointmentUpdateErr Text
	AppointmentCancelled Text
	AppointmentCancelErr Text
	AvailabilityFailed   Text
	ScheduleFailed       Text

	Today         string
	WeekendClosed string
	Morning       string
	Afternoon     string
	months        [12]string
	weekdays      [7]string
	dayFormat     string // day number, month name
	slotFormat    string // dd/MM/yyyy, hour
}

var catalogs = map[string]Catalog{
	"pt-br": {
		Locale:        "pt-BR",
		Today:         "Hoje",
		WeekendClosed: "Não atendemos no final de semana.",
		Morning:       "Manhã",
		Afternoon:     "Tarde",
		months:        [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
		weekdays:      [7]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"},
		dayFormat:     "Dia %02d de %s",
		slotFormat:    "%s às %d Horas",

		BookingCreated:       Text{"Agendamento realizado!", "Agendamento realizado com sucesso!"},
		BookingFailed:        Text{"Erro ao criar agendamento!", "Ocorreu um erro ao realizar o agendamento, por favor tente mais tarde!"},
		AppointmentUpdated:   Text{"Agendamento atualizado!", "Suas informações foram atualizadas com sucesso."},
		AppointmentUpdateErr: Text{"Erro na atualização!", "Não foi possível atualizar as informações, por favor tente novamente."},
		AppointmentCancelled: Text{"Agendamento cancelado!", "Suas informações foram atualizadas com sucesso."},
		AppointmentCancelErr: Text{"Erro no cancelamento!", "Não foi possível atualizar as informações, por favor tente novamente."},
		AvailabilityFailed:   Text{"Erro ao carregar horários!", "Não foi possível carregar os horários disponíveis, por favor tente novamente."},
		ScheduleFailed:       Text{"Erro ao carregar agendamentos!", "Não foi possível carregar seus agendamentos, por favor tente novamente."},
	},
	"en": {
		Locale:        "en",
		Today:         "Today",
		WeekendClosed: "We are closed on weekends.",
		Morning:       "Morning",
		Afternoon:     "Afternoon",
		months:        [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		weekdays:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		dayFormat:     "Day %02d of %s",
		slotFormat:    "%s at %d o'clock",

		BookingCreated:       Text{"Appointment booked!", "Your appointment was booked successfully!"},
		BookingFailed:        Text{"Could not book appointment!", "Something went wrong while booking, please try again later!"},
		AppointmentUpdated:   Text{"Appointment updated!", "Your information was updated successfully."},
		AppointmentUpdateErr: Text{"Update failed!", "Could not update the information, please try again."},
		AppointmentCancelled: Text{"Appointment cancelled!", "Your information was updated successfully."},
		AppointmentCancelErr: Text{"Cancellation failed!", "Could not update the information, please try again."},
		AvailabilityFailed:   Text{"Could not load times!", "Available times could not be loaded, please try again."},
		ScheduleFailed:       Text{"Could not load appointments!", "Your appointments could not be loaded, please try again."},
	},
}

// Messages returns the catalog for locale ("pt-BR", "en", "en-US", ...).
// Unknown locales get pt-BR.
func Messages(locale string) Catalog {
	key := strings.ToLower(strings.TrimSpace(locale))
	if c, ok := catalogs[key]; ok {
		return c
	}
	if i := strings.IndexAny(key, "-_"); i > 0 {
		if c, ok := catalogs[key[:i]]; ok {
			return c
		}
	}
	return catalogs["pt-br"]
}

// Success builds a success notification from a catalog entry.
func Success(topic string, t Text) Notification {
	return Notification{Kind: KindSuccess, Topic: topic, Title: t.Title, Description: t.Description}
}

// Failure builds an error notification from a catalog entry.
func Failure(topic string, t Text) Notification {
	return Notification{Kind: KindError, Topic: topic, Title: t.Title, Description: t.Description}
}

// DayLabel renders the day header, e.g. "Dia 06 de maio".
func (c Catalog) DayLabel(d scheduling.CalendarDate) string {
	if d.IsZero() || c.dayFormat == "" {
		return ""
	}
	return fmt.Sprintf(c.dayFormat, d.Day, c.months[d.Month-1])
}

// WeekdayName renders d's weekday, e.g. "segunda-feira".
func (c Catalog) WeekdayName(d scheduling.CalendarDate) string {
	if d.IsZero() || c.weekdays[0] == "" {
		return ""
	}
	return c.weekdays[d.Weekday()]
}

// SlotSummary renders the chosen slot, e.g. "06/05/2024 às 9 Horas".
func (c Catalog) SlotSummary(d scheduling.CalendarDate, hour int) string {
	if d.IsZero() || c.slotFormat == "" {
		return ""
	}
	return fmt.Sprintf(c.slotFormat, fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year), hour)
}
