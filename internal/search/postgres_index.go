package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresIndex implements Index on a search_index table with a JSONB facet
// column. It is the default backend; DynamoIndex is the alternative.
type PostgresIndex struct {
	db            *sql.DB
	rootSectionID int64
}

func NewPostgresIndex(db *sql.DB, rootSectionID int64) *PostgresIndex {
	return &PostgresIndex{db: db, rootSectionID: rootSectionID}
}

func (ix *PostgresIndex) Add(ctx context.Context, doc Document) error {
	facets, err := json.Marshal(doc.Facets)
	if err != nil {
		return fmt.Errorf("failed to marshal facets: %w", err)
	}

	_, err = ix.db.ExecContext(ctx,
		`INSERT INTO search_index (id, section_id, group_id, shop_id, title, text, facets, status, weight, locations, locale, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   section_id = EXCLUDED.section_id,
		   group_id   = EXCLUDED.group_id,
		   shop_id    = EXCLUDED.shop_id,
		   title      = EXCLUDED.title,
		   text       = EXCLUDED.text,
		   facets     = EXCLUDED.facets,
		   status     = EXCLUDED.status,
		   weight     = EXCLUDED.weight,
		   locations  = EXCLUDED.locations,
		   locale     = EXCLUDED.locale,
		   date       = EXCLUDED.date`,
		doc.ID, doc.SectionID, doc.GroupID, doc.ShopID, doc.Title, doc.Text,
		facets, doc.Status, doc.Weight, pq.Array(doc.Locations), doc.Locale, doc.Date,
	)
	return err
}

func (ix *PostgresIndex) Update(ctx context.Context, patch Patch) error {
	set := make([]string, 0, 3)
	args := []any{patch.ID}

	if patch.GroupID != nil {
		args = append(args, *patch.GroupID)
		set = append(set, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if patch.Status != nil {
		args = append(args, *patch.Status)
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.Weight != nil {
		args = append(args, *patch.Weight)
		set = append(set, fmt.Sprintf("weight = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}

	_, err := ix.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE search_index SET %s WHERE id = $1", strings.Join(set, ", ")),
		args...,
	)
	return err
}

func (ix *PostgresIndex) Delete(ctx context.Context, sectionID, productID int64) error {
	// Section-scoped so a stale delete never removes a document re-added
	// under a new section.
	_, err := ix.db.ExecContext(ctx,
		"DELETE FROM search_index WHERE id = $1 AND ($2 = 0 OR section_id = $2)",
		productID, sectionID,
	)
	return err
}

func (ix *PostgresIndex) Select(ctx context.Context, q Query) ([]int64, error) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.SectionID > 0 && q.SectionID != ix.rootSectionID {
		where = append(where, "section_id = "+arg(q.SectionID))
	}
	if q.ShopID > 0 {
		where = append(where, "shop_id = "+arg(q.ShopID))
	}
	if q.GroupID != nil {
		where = append(where, "group_id = "+arg(*q.GroupID))
	}
	if q.LocationID > 0 {
		where = append(where, arg(q.LocationID)+" = ANY(locations)")
	}
	if q.LocationToID > 0 {
		where = append(where, arg(q.LocationToID)+" = ANY(locations)")
	}
	if len(q.Statuses) > 0 {
		where = append(where, "status = ANY("+arg(pq.Array(q.Statuses))+")")
	}

	for alias, pred := range q.Filters {
		if pred.Empty() {
			continue
		}
		if len(pred.IDs) > 0 {
			ors := make([]string, 0, len(pred.IDs))
			for _, id := range pred.IDs {
				ors = append(ors, fmt.Sprintf(
					"facets #> ARRAY[%s::text, 'ids'] @> to_jsonb(%s::bigint)",
					arg(alias), arg(id)))
			}
			where = append(where, "("+strings.Join(ors, " OR ")+")")
			continue
		}
		raw := fmt.Sprintf("facets #>> ARRAY[%s::text, 'raw']", arg(alias))
		cond := raw + " ~ '^-?[0-9]+$'"
		if strings.TrimSpace(pred.Raw) != "" {
			cond += fmt.Sprintf(" AND (%s)::bigint >= %s::bigint", raw, arg(strings.TrimSpace(pred.Raw)))
		}
		if strings.TrimSpace(pred.RawTo) != "" {
			cond += fmt.Sprintf(" AND (%s)::bigint <= %s::bigint", raw, arg(strings.TrimSpace(pred.RawTo)))
		}
		where = append(where, "("+cond+")")
	}

	query := "SELECT id FROM search_index"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch q.Order {
	case OrderWeightDate:
		query += " ORDER BY weight DESC, date DESC, id DESC"
	default:
		query += " ORDER BY date DESC, id DESC"
	}
	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(q.PageSize), arg((page-1)*q.PageSize))
	}

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
