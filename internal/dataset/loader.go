package dataset

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"voice-features-go/internal/errs"
	"voice-features-go/internal/logger"
	"voice-features-go/internal/types"
)

const pageSize = 100

// Querier is the graph client surface used here.
type Querier interface {
	Do(ctx context.Context, query string, vars map[string]any, out any) error
}

// Repository loads templates and records from the query service and writes
// derived raw data back.
type Repository struct {
	q   Querier
	log *logrus.Entry
}

func NewRepository(q Querier, log *logrus.Entry) *Repository {
	return &Repository{q: q, log: logger.OrDiscard(log)}
}

type wireFeature struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsNumeric   *bool   `json:"isNumeric"`
}

type wireRawData struct {
	ID          string   `json:"id"`
	ValueString *string  `json:"valueString"`
	ValueNumber *float64 `json:"valueNumber"`
	TreeID      string   `json:"treeId"`
	FeatureID   *string  `json:"featureId"`
}

type wireTree struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	RawData *struct {
		Items []*wireRawData `json:"items"`
	} `json:"rawData"`
}

func (t wireTree) record() types.ParentRecord {
	rec := types.ParentRecord{ID: t.ID, Name: t.Name}
	if t.RawData == nil {
		return rec
	}
	for _, d := range t.RawData.Items {
		if d == nil {
			continue
		}
		a := types.RawAttachment{
			ID:          d.ID,
			ValueString: d.ValueString,
			ValueNumber: d.ValueNumber,
			ParentID:    d.TreeID,
		}
		if a.ParentID == "" {
			a.ParentID = t.ID
		}
		if d.FeatureID != nil {
			a.FeatureID = *d.FeatureID
		}
		rec.Attachments = append(rec.Attachments, a)
	}
	return rec
}

// LoadSchema returns the template's features in service order. A missing
// template is errs.NotFound; a template without features is errs.Validation.
func (r *Repository) LoadSchema(ctx context.Context, templateID string) ([]types.FeatureDefinition, error) {
	var tpl struct {
		GetTemplate *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"getTemplate"`
	}
	if err := r.q.Do(ctx, getTemplateQuery, map[string]any{"id": templateID}, &tpl); err != nil {
		return nil, errs.Wrap(err, errs.Upstream, "load template")
	}
	if tpl.GetTemplate == nil {
		return nil, errs.Newf(errs.NotFound, "template %s not found", templateID)
	}

	var features []types.FeatureDefinition
	var next *string
	for {
		var page struct {
			ListTemplateFeatures struct {
				Items []*struct {
					FeatureID string       `json:"featureId"`
					Feature   *wireFeature `json:"feature"`
				} `json:"items"`
				NextToken *string `json:"nextToken"`
			} `json:"listTemplateFeatures"`
		}
		vars := map[string]any{
			"filter": map[string]any{"templateId": map[string]any{"eq": templateID}},
			"limit":  pageSize,
		}
		if next != nil {
			vars["nextToken"] = *next
		}
		if err := r.q.Do(ctx, listTemplateFeaturesQuery, vars, &page); err != nil {
			return nil, errs.Wrap(err, errs.Upstream, "load template features")
		}
		for _, it := range page.ListTemplateFeatures.Items {
			if it == nil || it.Feature == nil || it.Feature.Name == "" {
				continue
			}
			f := types.FeatureDefinition{ID: it.Feature.ID, Name: it.Feature.Name}
			if f.ID == "" {
				f.ID = it.FeatureID
			}
			if it.Feature.Description != nil {
				f.Description = *it.Feature.Description
			}
			if it.Feature.IsNumeric != nil {
				f.IsNumeric = *it.Feature.IsNumeric
			}
			features = append(features, f)
		}
		next = page.ListTemplateFeatures.NextToken
		if next == nil || *next == "" {
			break
		}
	}

	if len(features) == 0 {
		return nil, errs.Newf(errs.Validation, "template %s has no features to extract", templateID)
	}
	r.log.WithFields(logrus.Fields{"template_id": templateID, "features": len(features)}).Info("schema loaded")
	return features, nil
}

// LoadRecords resolves parent ids to records with their attachments. One id
// is a point lookup; several ids (or none, meaning all) use the paged listing.
func (r *Repository) LoadRecords(ctx context.Context, ids []string) ([]types.ParentRecord, error) {
	if len(ids) == 1 {
		var out struct {
			GetTree *wireTree `json:"getTree"`
		}
		if err := r.q.Do(ctx, getTreeQuery, map[string]any{"id": ids[0]}, &out); err != nil {
			return nil, errs.Wrap(err, errs.Upstream, "load record")
		}
		if out.GetTree == nil {
			return nil, nil
		}
		return []types.ParentRecord{out.GetTree.record()}, nil
	}

	var filter map[string]any
	if len(ids) > 1 {
		or := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			or = append(or, map[string]any{"id": map[string]any{"eq": id}})
		}
		filter = map[string]any{"or": or}
	}

	var records []types.ParentRecord
	var next *string
	for {
		var page struct {
			ListTrees struct {
				Items     []*wireTree `json:"items"`
				NextToken *string     `json:"nextToken"`
			} `json:"listTrees"`
		}
		vars := map[string]any{"limit": pageSize}
		if filter != nil {
			vars["filter"] = filter
		}
		if next != nil {
			vars["nextToken"] = *next
		}
		if err := r.q.Do(ctx, listTreesQuery, vars, &page); err != nil {
			return nil, errs.Wrap(err, errs.Upstream, "load records")
		}
		for _, t := range page.ListTrees.Items {
			if t != nil {
				records = append(records, t.record())
			}
		}
		next = page.ListTrees.NextToken
		if next == nil || *next == "" {
			break
		}
	}
	r.log.WithField("records", len(records)).Info("records loaded")
	return records, nil
}

// CreateDerived writes one derived raw data item.
func (r *Repository) CreateDerived(ctx context.Context, d types.DerivedRawRecord) error {
	input := map[string]any{
		"treeId":    d.ParentID,
		"featureId": d.FeatureID,
	}
	switch {
	case d.ValueNumber != nil:
		input["valueNumber"] = *d.ValueNumber
	case d.ValueString != nil:
		input["valueString"] = *d.ValueString
	default:
		return fmt.Errorf("derived record for feature %s has no value", d.FeatureID)
	}
	if err := r.q.Do(ctx, createRawDataMutation, map[string]any{"input": input}, nil); err != nil {
		return fmt.Errorf("create raw data: %w", err)
	}
	return nil
}
