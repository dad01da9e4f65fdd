package discover

import (
	"context"

	"github.com/fwojciec/docmirror"
)

// SyncResult lists source names by what Sync did to them.
type SyncResult struct {
	Created  []string
	Updated  []string
	Disabled []string

	// Skipped holds sources that could not be stored, such as a name or
	// base URL already taken by another stored source.
	Skipped []Rejection
}

// Sync stores resolved sources through svc. Existing sources are matched by
// name, then by base URL, updated in place and re-enabled; a source matched
// by base URL takes the new name. Stored sources missing from sources are
// disabled, never deleted. Conflicting or invalid entries are skipped and
// reported in the result; other storage errors stop the sync.
func Sync(ctx context.Context, svc docmirror.SourceService, sources []*docmirror.Source) (*SyncResult, error) {
	existing, err := svc.FindSources(ctx, docmirror.SourceFilter{})
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*docmirror.Source, len(existing))
	byURL := make(map[string]*docmirror.Source, len(existing))
	for _, s := range existing {
		byName[s.Name] = s
		byURL[s.BaseURL] = s
	}
	listed := make(map[string]bool, len(sources))
	for _, s := range sources {
		listed[s.Name] = true
	}

	res := &SyncResult{}
	kept := make(map[string]bool, len(sources))
	for _, s := range sources {
		current, ok := byName[s.Name]
		if !ok {
			if c, found := byURL[s.BaseURL]; found && !listed[c.Name] && !kept[c.ID] {
				current, ok = c, true
			}
		}
		if !ok {
			if err := svc.CreateSource(ctx, s); err != nil {
				if !skippable(err) {
					return res, err
				}
				res.Skipped = append(res.Skipped, skipped(s, err))
				continue
			}
			kept[s.ID] = true
			res.Created = append(res.Created, s.Name)
			continue
		}

		enabled := false
		upd := docmirror.SourceUpdate{
			Name:     &s.Name,
			BaseURL:  &s.BaseURL,
			Category: &s.Category,
			Priority: &s.Priority,
			Policy:   &s.Policy,
			Schema:   &s.Schema,
			Render:   &s.Render,
			Disabled: &enabled,
		}
		updated, err := svc.UpdateSource(ctx, current.ID, upd)
		if err != nil {
			if !skippable(err) {
				return res, err
			}
			kept[current.ID] = true
			res.Skipped = append(res.Skipped, skipped(s, err))
			continue
		}
		kept[current.ID] = true
		*s = *updated
		res.Updated = append(res.Updated, s.Name)
	}

	disabled := true
	for _, s := range existing {
		if kept[s.ID] || s.Disabled {
			continue
		}
		if _, err := svc.UpdateSource(ctx, s.ID, docmirror.SourceUpdate{Disabled: &disabled}); err != nil {
			return res, err
		}
		res.Disabled = append(res.Disabled, s.Name)
	}
	return res, nil
}

func skippable(err error) bool {
	switch docmirror.ErrorCode(err) {
	case docmirror.ECONFLICT, docmirror.EINVALID:
		return true
	}
	return false
}

func skipped(s *docmirror.Source, err error) Rejection {
	reason := ReasonInvalid
	if docmirror.ErrorCode(err) == docmirror.ECONFLICT {
		reason = ReasonDuplicate
	}
	return Rejection{
		Candidate: docmirror.SourceCandidate{Name: s.Name, URL: s.BaseURL, Category: s.Category},
		Reason:    reason,
		Err:       err,
	}
}
