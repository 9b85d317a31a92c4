// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package scope resolves the three-tier knowledge isolation model — global,
// project, and local (project+dataset) — into collection names, database
// filters, and deterministic project/dataset UUIDs.
package scope

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Level is a knowledge scope tier.
type Level string

const (
	Global  Level = "global"
	Project Level = "project"
	Local   Level = "local"
)

func parseLevel(s string) (Level, bool) {
	switch Level(s) {
	case Global, Project, Local:
		return Level(s), true
	default:
		return "", false
	}
}

// Manager resolves scopes and derives collection names / filters / IDs from
// them, consistently across the relational store, point store, and
// catalog.
type Manager struct {
	DefaultScope Level
}

// NewManager builds a Manager. An empty or unrecognized defaultScope falls
// back to Local.
func NewManager(defaultScope string) *Manager {
	level, ok := parseLevel(defaultScope)
	if !ok {
		level = Local
	}
	return &Manager{DefaultScope: level}
}

// Resolve determines the effective scope level from project/dataset
// presence and an explicitly requested scope, mirroring the reference
// resolution order: an explicit "global" always wins; project+dataset
// resolve to Local unless Project was explicitly requested; project alone
// is always Project; neither is always Global.
func (m *Manager) Resolve(project, dataset, requestedScope string) Level {
	if requestedScope == string(Global) {
		return Global
	}

	requested, _ := parseLevel(requestedScope)

	switch {
	case project != "" && dataset != "":
		if requested == Project {
			return Project
		}
		return Local
	case project != "":
		return Project
	default:
		return Global
	}
}

// CollectionName builds the store-facing collection identifier for a scope.
func (m *Manager) CollectionName(project, dataset string, level Level) (string, error) {
	switch level {
	case Global:
		return "global_knowledge", nil
	case Project:
		if project == "" {
			return "", fmt.Errorf("project name required for project scope")
		}
		return "project_" + sanitizeName(project), nil
	case Local:
		if project == "" || dataset == "" {
			return "", fmt.Errorf("project and dataset names required for local scope")
		}
		return fmt.Sprintf("project_%s_dataset_%s", sanitizeName(project), sanitizeName(dataset)), nil
	default:
		return "", fmt.Errorf("unknown scope level %q", level)
	}
}

// ProjectID derives a deterministic UUIDv5 for a project name ("default"
// when empty), stable across runs so re-ingesting the same project never
// produces a different ID.
func ProjectID(project string) string {
	if project == "" {
		project = "default"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(project)).String()
}

// DatasetID derives a deterministic UUIDv5 for a dataset name.
func DatasetID(dataset string) string {
	if dataset == "" {
		dataset = "default"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(dataset)).String()
}

// Filter is a scope-keyed set of conditions for narrowing a store query to
// exactly the records a caller is allowed to see.
type Filter map[string]string

// FilterByScope builds the query filter for a resolved scope level.
func FilterByScope(level Level, projectID, datasetID string) (Filter, error) {
	filters := Filter{"scope": string(level)}

	switch level {
	case Project:
		if projectID == "" {
			return nil, fmt.Errorf("project ID required for project scope filter")
		}
		filters["project_id"] = projectID
	case Local:
		if projectID == "" || datasetID == "" {
			return nil, fmt.Errorf("project and dataset IDs required for local scope filter")
		}
		filters["project_id"] = projectID
		filters["dataset_id"] = datasetID
	}
	return filters, nil
}

// AccessibleScopes lists the scope levels a caller may read given the
// project/dataset context they provided, in most- to least-specific order.
func AccessibleScopes(project, dataset string, includeGlobal bool) []Level {
	var levels []Level
	switch {
	case project != "" && dataset != "":
		levels = append(levels, Local, Project)
	case project != "":
		levels = append(levels, Project)
	}
	if includeGlobal {
		levels = append(levels, Global)
	}
	if len(levels) == 0 {
		return []Level{Global}
	}
	return levels
}

var (
	nonAlphanumeric  = regexp.MustCompile(`[^a-zA-Z0-9]`)
	repeatUnderscore = regexp.MustCompile(`_+`)
)

func sanitizeName(name string) string {
	sanitized := nonAlphanumeric.ReplaceAllString(name, "_")
	sanitized = repeatUnderscore.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_")
	return strings.ToLower(sanitized)
}
