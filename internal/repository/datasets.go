package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

// Datasets is the datasets table. Listings never select the grid column.
type Datasets struct {
	pool *pgxpool.Pool
}

const datasetMetaColumns = `id, owner_id, storage_name, original_name, mime_type, byte_size, storage_path,
	sheet_name, columns, row_count, column_count, summary, processing_status, processing_error,
	processing_time, is_public, tags, description, chart_config, version, created_at, updated_at`

// jsonbFields holds the encoded JSONB values of a dataset.
type jsonbFields struct {
	columns, grid, summary []byte
}

func encodeJSONB(d *model.Dataset) (jsonbFields, error) {
	var (
		f   jsonbFields
		err error
	)
	if f.columns, err = json.Marshal(d.Columns); err != nil {
		return f, fmt.Errorf("encode columns: %w", err)
	}
	if d.Grid != nil {
		if f.grid, err = json.Marshal(d.Grid); err != nil {
			return f, fmt.Errorf("encode grid: %w", err)
		}
	}
	if f.summary, err = json.Marshal(d.Summary); err != nil {
		return f, fmt.Errorf("encode summary: %w", err)
	}
	return f, nil
}

// scanDataset reads datasetMetaColumns, plus grid when withGrid is set.
func scanDataset(row pgx.Row, withGrid bool) (*model.Dataset, error) {
	var (
		d                      model.Dataset
		columns, summary, grid []byte
		chartConfig            []byte
	)
	dest := []any{&d.ID, &d.OwnerID, &d.StorageName, &d.OriginalName, &d.MimeType, &d.ByteSize, &d.StoragePath,
		&d.SheetName, &columns, &d.RowCount, &d.ColumnCount, &summary, &d.ProcessingStatus, &d.ProcessingError,
		&d.ProcessingTime, &d.IsPublic, &d.Tags, &d.Description, &chartConfig, &d.Version, &d.CreatedAt, &d.UpdatedAt}
	if withGrid {
		dest = append(dest, &grid)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		if err := json.Unmarshal(columns, &d.Columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &d.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	if len(grid) > 0 {
		if err := json.Unmarshal(grid, &d.Grid); err != nil {
			return nil, fmt.Errorf("decode grid: %w", err)
		}
	}
	if len(chartConfig) > 0 {
		d.ChartConfig = json.RawMessage(chartConfig)
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return &d, nil
}

func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func (r *Datasets) Create(ctx context.Context, d *model.Dataset) error {
	f, err := encodeJSONB(d)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	d.Version = 1
	if d.Tags == nil {
		d.Tags = []string{}
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO datasets (`+datasetMetaColumns+`, grid)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`, d.ID, d.OwnerID, d.StorageName, d.OriginalName, d.MimeType, d.ByteSize, d.StoragePath,
		d.SheetName, f.columns, d.RowCount, d.ColumnCount, f.summary, d.ProcessingStatus, d.ProcessingError,
		d.ProcessingTime, d.IsPublic, d.Tags, d.Description, nullableJSON(d.ChartConfig), d.Version, d.CreatedAt, d.UpdatedAt,
		f.grid)
	if err != nil {
		if mapped := mapErr(err); mapped == storage.ErrConflict {
			return mapped
		}
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (r *Datasets) Get(ctx context.Context, id string) (*model.Dataset, error) {
	d, err := scanDataset(r.pool.QueryRow(ctx,
		`SELECT `+datasetMetaColumns+`, grid FROM datasets WHERE id=$1`, id), true)
	if err != nil {
		return nil, mapErr(err)
	}
	return d, nil
}

// Update writes every mutable column when the stored version matches
// d.Version. Owner and creation time are never changed.
func (r *Datasets) Update(ctx context.Context, d *model.Dataset) error {
	f, err := encodeJSONB(d)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var owner string
	var created time.Time
	err = r.pool.QueryRow(ctx, `
		UPDATE datasets
		SET storage_name=$3, original_name=$4, mime_type=$5, byte_size=$6, storage_path=$7, sheet_name=$8,
			columns=$9, grid=$10, row_count=$11, column_count=$12, summary=$13, processing_status=$14,
			processing_error=$15, processing_time=$16, is_public=$17, tags=$18, description=$19,
			chart_config=$20, version=version+1, updated_at=$21
		WHERE id=$1 AND version=$2
		RETURNING owner_id, created_at
	`, d.ID, d.Version, d.StorageName, d.OriginalName, d.MimeType, d.ByteSize, d.StoragePath, d.SheetName,
		f.columns, f.grid, d.RowCount, d.ColumnCount, f.summary, d.ProcessingStatus,
		d.ProcessingError, d.ProcessingTime, d.IsPublic, d.Tags, d.Description,
		nullableJSON(d.ChartConfig), now).Scan(&owner, &created)
	if err == nil {
		d.OwnerID = owner
		d.CreatedAt = created
		d.Version++
		d.UpdatedAt = now
		return nil
	}
	if mapErr(err) != storage.ErrNotFound {
		return fmt.Errorf("update dataset: %w", err)
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM datasets WHERE id=$1)`, d.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check dataset: %w", err)
	}
	if exists {
		return storage.ErrVersionMismatch
	}
	return storage.ErrNotFound
}

func (r *Datasets) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM datasets WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Datasets) List(ctx context.Context, q storage.DatasetQuery) ([]model.Dataset, int, error) {
	where, args := datasetFilter(q)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM datasets`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	sql := `SELECT ` + datasetMetaColumns + ` FROM datasets` + where + datasetOrder(q)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sql += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select datasets: %w", err)
	}
	defer rows.Close()
	out := make([]model.Dataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows, false)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func (r *Datasets) Stats(ctx context.Context, q storage.DatasetQuery) (storage.DatasetStats, error) {
	where, args := datasetFilter(q)
	var st storage.DatasetStats
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(byte_size), 0) FROM datasets`+where, args...).
		Scan(&st.Count, &st.TotalBytes)
	if err != nil {
		return st, fmt.Errorf("dataset stats: %w", err)
	}
	return st, nil
}

// datasetFilter renders the WHERE clause for q with positional arguments.
func datasetFilter(q storage.DatasetQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.OwnerID != "" {
		add("owner_id = $%d", q.OwnerID)
	}
	if q.PublicOnly {
		conds = append(conds, "is_public")
	}
	if !q.CreatedAfter.IsZero() {
		add("created_at > $%d", q.CreatedAfter)
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(original_name ILIKE $%d OR storage_name ILIKE $%d)", n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var sortColumns = map[string]string{
	storage.SortCreatedAt:    "created_at",
	storage.SortOriginalName: "original_name",
	storage.SortFileSize:     "byte_size",
	storage.SortRowCount:     "row_count",
}

func datasetOrder(q storage.DatasetQuery) string {
	dir := "DESC"
	if q.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", sortColumns[q.SortField()], dir, dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
