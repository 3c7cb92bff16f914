package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// migration upgrades a raw profile document one schema version forward.
// Every migration must preserve score stability: a document migrated with
// defaults has to score identically to how it scored before the migration
// existed.
type migration func(doc map[string]any) map[string]any

// migrations[v] upgrades a version-v document to v+1.
var migrations = map[int]migration{
	1: migrateV1ToV2,
	2: migrateV2ToV3,
}

// migrateV1ToV2 installs the legacy fixed weights as explicit
// scoring_weights. v1 documents predate configurable weights.
func migrateV1ToV2(doc map[string]any) map[string]any {
	if _, ok := doc["scoring_weights"]; !ok {
		w := DefaultWeights()
		doc["scoring_weights"] = map[string]any{
			"skills":    w.Skills,
			"title":     w.Title,
			"seniority": w.Seniority,
			"location":  w.Location,
			"domain":    w.Domain,
			"response":  w.Response,
		}
	}
	doc["schema_version"] = 2
	return doc
}

// migrateV2ToV3 adds staffing_preference, defaulting to neutral so migrated
// profiles score exactly as before.
func migrateV2ToV3(doc map[string]any) map[string]any {
	if _, ok := doc["staffing_preference"]; !ok {
		doc["staffing_preference"] = string(StaffingNeutral)
	}
	doc["schema_version"] = 3
	return doc
}

// Load reads a profile document, migrates it to the current schema, and
// validates it.
func Load(path string) (*CandidateProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	doc, err = migrate(doc)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON to decode the migrated document into the
	// typed struct.
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encode migrated profile: %w", err)
	}
	var p CandidateProfile
	if err := json.Unmarshal(buf, &p); err != nil {
		return nil, fmt.Errorf("decode migrated profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate profile: %w", err)
	}
	return &p, nil
}

func migrate(doc map[string]any) (map[string]any, error) {
	version := 1
	if v, ok := doc["schema_version"]; ok {
		f, isNum := v.(float64)
		if !isNum {
			return nil, fmt.Errorf("schema_version is %T, want number", v)
		}
		version = int(f)
	}
	if version > CurrentSchemaVersion {
		return nil, fmt.Errorf("profile schema version %d is newer than supported %d", version, CurrentSchemaVersion)
	}
	for version < CurrentSchemaVersion {
		step, ok := migrations[version]
		if !ok {
			return nil, fmt.Errorf("no migration from schema version %d", version)
		}
		doc = step(doc)
		version++
	}
	return doc, nil
}

// Save validates the profile and writes it atomically. Invalid profiles are
// rejected here so a saved document is always loadable.
func Save(path string, p *CandidateProfile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid profile: %w", err)
	}
	p.SchemaVersion = CurrentSchemaVersion

	buf, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*.json")
	if err != nil {
		return fmt.Errorf("create temp profile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp profile: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}
	return nil
}
