package models

import (
	"strings"
	"time"
)

// Known signal sources.
const (
	SourceAWSSpot        = "aws_spot"
	SourceEIAElectricity = "eia_electricity"
	SourceWeather        = "weather"
	SourceGPUPricing     = "gpu_pricing"
	SourceNews           = "news"
	SourceArchive        = "archive"
)

type Signal struct {
	Source       string    `json:"source"`
	Name         string    `json:"name"`
	Value        float64   `json:"value"`
	Unit         string    `json:"unit"`
	Timestamp    time.Time `json:"timestamp"`
	InstanceType string    `json:"instance_type,omitempty"`
	AZ           string    `json:"az,omitempty"`
	ChangePct    *float64  `json:"change_pct"`
}

// Key identifies the series the signal belongs to.
func (s Signal) Key() string {
	return s.Source + ":" + s.Name
}

// Matches reports whether the signal is a price for instance in zone.
func (s Signal) Matches(instance, zone string) bool {
	instOK := s.InstanceType == instance || strings.Contains(s.Name, instance)
	zoneOK := s.AZ == zone || strings.Contains(s.Name, zone)
	return instOK && zoneOK
}

// FindPrice returns the value of the first signal that Matches.
func FindPrice(signals []Signal, instance, zone string) (float64, bool) {
	for _, s := range signals {
		if s.Matches(instance, zone) {
			return s.Value, true
		}
	}
	return 0, false
}

// LatestTimestamp returns the newest timestamp in the batch.
func LatestTimestamp(signals []Signal) (time.Time, bool) {
	var latest time.Time
	for _, s := range signals {
		if s.Timestamp.After(latest) {
			latest = s.Timestamp
		}
	}
	return latest, !latest.IsZero()
}

type SignalSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Signals   []Signal  `json:"signals"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type SignalHistory struct {
	Source     string      `json:"source"`
	Name       string      `json:"name"`
	DataPoints []DataPoint `json:"data_points"`
}

type SourceStatus struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	LastUpdate *time.Time `json:"last_update"`
}

// IngestResult reports one source's ingestion outcome.
type IngestResult struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}
