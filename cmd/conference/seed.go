package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/conference-scheduler/internal/application"
)

// seedFile is the YAML document accepted by the seed command.
type seedFile struct {
	Faculty []struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
	} `yaml:"faculty"`
	Halls []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Location string `yaml:"location"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"halls"`
	Sessions []struct {
		EventID     string `yaml:"eventId"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		FacultyID   string `yaml:"facultyId"`
		Email       string `yaml:"email"`
		Place       string `yaml:"place"`
		RoomID      string `yaml:"roomId"`
		StartTime   string `yaml:"startTime"`
		EndTime     string `yaml:"endTime"`
		Date        string `yaml:"date"`
		Status      string `yaml:"status"`
	} `yaml:"sessions"`
}

type seedSummary struct {
	Faculty  int
	Halls    int
	Sessions int
}

func readSeedFile(path string) (seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, err
	}
	return parseSeed(raw)
}

func parseSeed(raw []byte) (seedFile, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return seedFile{}, fmt.Errorf("parse seed: %w", err)
	}
	return file, nil
}

// applySeed upserts directory entries and then creates the sessions as one
// batch, so invitations are grouped per recipient.
func applySeed(ctx context.Context, svc services, file seedFile) (seedSummary, error) {
	var summary seedSummary
	principal := application.SystemPrincipal

	for i, f := range file.Faculty {
		if _, err := svc.Directory.UpsertFaculty(ctx, principal, application.FacultyInput{ID: f.ID, Name: f.Name, Email: f.Email}); err != nil {
			return summary, fmt.Errorf("faculty[%d]: %w", i, err)
		}
		summary.Faculty++
	}
	for i, h := range file.Halls {
		if _, err := svc.Directory.UpsertHall(ctx, principal, application.HallInput{ID: h.ID, Name: h.Name, Location: h.Location, Capacity: h.Capacity}); err != nil {
			return summary, fmt.Errorf("halls[%d]: %w", i, err)
		}
		summary.Halls++
	}
	if len(file.Sessions) == 0 {
		return summary, nil
	}

	inputs := make([]application.SessionInput, 0, len(file.Sessions))
	for _, s := range file.Sessions {
		inputs = append(inputs, application.SessionInput{
			EventID:     s.EventID,
			Title:       s.Title,
			Description: s.Description,
			FacultyID:   s.FacultyID,
			Email:       s.Email,
			Place:       s.Place,
			RoomID:      s.RoomID,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			Date:        s.Date,
			Status:      s.Status,
		})
	}
	result, err := svc.Sessions.CreateBatch(ctx, application.CreateBatchParams{Principal: principal, Inputs: inputs})
	if err != nil {
		return summary, err
	}
	for _, item := range result.Items {
		if item.Err != nil {
			return summary, fmt.Errorf("sessions[%d]: %w", item.Index, item.Err)
		}
	}
	summary.Sessions = len(result.Created())
	return summary, nil
}
