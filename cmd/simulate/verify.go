package main

import (
	"fmt"
	"sort"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

type bookedAppointment struct {
	ID        string          `json:"id"`
	DoctorID  string          `json:"doctor_id"`
	Date      string          `json:"date"`
	StartTime timeofday.Clock `json:"start_time"`
	EndTime   timeofday.Clock `json:"end_time"`
	Status    string          `json:"status"`
}

type overlap struct {
	DoctorID string
	Date     string
	First    string
	Second   string
}

func (o overlap) String() string {
	return fmt.Sprintf("doctor %s on %s: %s overlaps %s", o.DoctorID, o.Date, o.First, o.Second)
}

// findOverlaps reports every pair of active appointments that share a doctor
// and a date and whose intervals intersect.
func findOverlaps(list []bookedAppointment) []overlap {
	type dayKey struct{ doctor, date string }
	byDay := make(map[dayKey][]bookedAppointment)
	for _, a := range list {
		if a.Status == "cancelled" {
			continue
		}
		k := dayKey{a.DoctorID, a.Date}
		byDay[k] = append(byDay[k], a)
	}

	var out []overlap
	for k, day := range byDay {
		sort.Slice(day, func(i, j int) bool { return day[i].StartTime < day[j].StartTime })
		for i := 0; i < len(day); i++ {
			for j := i + 1; j < len(day) && day[j].StartTime < day[i].EndTime; j++ {
				if timeofday.Overlaps(day[i].StartTime, day[i].EndTime, day[j].StartTime, day[j].EndTime) {
					out = append(out, overlap{DoctorID: k.doctor, Date: k.date, First: day[i].ID, Second: day[j].ID})
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DoctorID != out[j].DoctorID {
			return out[i].DoctorID < out[j].DoctorID
		}
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].First < out[j].First
	})
	return out
}
