package main

import (
	"context"
	"database/sql"
	"fmt"

	"motodirectory/libs/directory"
)

// shopRow is a shop as stored in the shops table. NULL marks the directory's
// placeholder values ("N/A", "Unknown City", ...).
type shopRow struct {
	Name         string
	BusinessType string
	Latitude     float64
	Longitude    float64
	Street       sql.NullString
	City         sql.NullString
	Country      sql.NullString
	Phone        sql.NullString
	Website      sql.NullString
	Hours        sql.NullString
	Rating       sql.NullString
	ReviewsCount sql.NullString
}

func (a *App) storeLoadDirectory(ctx context.Context) (*directory.Dataset, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT name, business_type, latitude, longitude, address_street, address_city,
			address_country, phone, website, opening_hours, rating, reviews_count
		FROM shops
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query shops: %w", err)
	}
	defer rows.Close()

	shops := []directory.ShopRecord{}
	for rows.Next() {
		var row shopRow
		if err := rows.Scan(
			&row.Name, &row.BusinessType, &row.Latitude, &row.Longitude, &row.Street, &row.City,
			&row.Country, &row.Phone, &row.Website, &row.Hours, &row.Rating, &row.ReviewsCount,
		); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, shopRecordFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countries, err := a.storeCountryCityIndex(ctx)
	if err != nil {
		return nil, err
	}
	return &directory.Dataset{Shops: shops, Countries: countries}, nil
}

// countryCityIndexQuery lists cities by id, which migrateDirectory assigns in source order.
const countryCityIndexQuery = `
	SELECT co.name, ci.name
	FROM countries co
	LEFT JOIN cities ci ON ci.country_id = co.id
	ORDER BY co.name, ci.id
`

func (a *App) storeCountryCityIndex(ctx context.Context) (directory.CountryCityIndex, error) {
	rows, err := a.db.QueryContext(ctx, countryCityIndexQuery)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()

	index := directory.CountryCityIndex{}
	for rows.Next() {
		var country string
		var city sql.NullString
		if err := rows.Scan(&country, &city); err != nil {
			return nil, err
		}
		appendIndexRow(index, country, city)
	}
	return index, rows.Err()
}

// appendIndexRow adds one joined row; a NULL city still registers the country.
func appendIndexRow(index directory.CountryCityIndex, country string, city sql.NullString) {
	if _, ok := index[country]; !ok {
		index[country] = []string{}
	}
	if city.Valid {
		index[country] = append(index[country], city.String)
	}
}

func (a *App) storeClearDirectory(ctx context.Context) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"shops", "cities", "countries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (a *App) storeUpsertCountry(ctx context.Context, name, code string) (int, error) {
	var id int
	err := a.db.QueryRowContext(ctx, `
		INSERT INTO countries (name, code, shop_count)
		VALUES ($1, $2, 0)
		ON CONFLICT (name) DO UPDATE SET code = EXCLUDED.code
		RETURNING id
	`, name, code).Scan(&id)
	return id, err
}

// storeInsertCity reports whether a new row was created.
func (a *App) storeInsertCity(ctx context.Context, countryID int, name string) (bool, error) {
	result, err := a.db.ExecContext(ctx, `
		INSERT INTO cities (name, country_id, shop_count)
		VALUES ($1, $2, 0)
		ON CONFLICT (country_id, name) DO NOTHING
	`, name, countryID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (a *App) storeInsertShopBatch(ctx context.Context, batch []shopRow) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO shops (
			name, business_type, latitude, longitude, address_street, address_city,
			address_country, phone, website, opening_hours, rating, reviews_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range batch {
		if _, err := stmt.ExecContext(ctx,
			row.Name, row.BusinessType, row.Latitude, row.Longitude, row.Street, row.City,
			row.Country, row.Phone, row.Website, row.Hours, row.Rating, row.ReviewsCount,
		); err != nil {
			return fmt.Errorf("insert shop %q: %w", row.Name, err)
		}
	}
	return tx.Commit()
}

func (a *App) storeUpdateShopCounts(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `
		UPDATE countries co
		SET shop_count = (SELECT COUNT(*) FROM shops s WHERE s.address_country = co.name)
	`); err != nil {
		return fmt.Errorf("update country counts: %w", err)
	}
	if _, err := a.db.ExecContext(ctx, `
		UPDATE cities ci
		SET shop_count = (
			SELECT COUNT(*)
			FROM shops s
			JOIN countries co ON co.id = ci.country_id
			WHERE s.address_city = ci.name AND s.address_country = co.name
		)
	`); err != nil {
		return fmt.Errorf("update city counts: %w", err)
	}
	return nil
}

// shopRecordFromRow restores the placeholder values the directory file uses.
func shopRecordFromRow(row shopRow) directory.ShopRecord {
	city := nullOr(row.City, unknownCity)
	country := nullOr(row.Country, unknownCountry)
	address := nullOr(row.Street, addressNotAvailable)

	return directory.ShopRecord{
		Name:         row.Name,
		Address:      address,
		City:         city + directory.LocationSeparator + country,
		Phone:        directory.StringField(nullOr(row.Phone, directory.NotAvailable)),
		Website:      directory.StringField(nullOr(row.Website, directory.NotAvailable)),
		Latitude:     directory.NumberField(row.Latitude),
		Longitude:    directory.NumberField(row.Longitude),
		Rating:       directory.StringField(nullOr(row.Rating, directory.NotAvailable)),
		ReviewsCount: directory.StringField(nullOr(row.ReviewsCount, "0")),
		Hours:        directory.StringField(nullOr(row.Hours, directory.DefaultHours)),
		BusinessType: directory.StringField(row.BusinessType),
	}
}

func nullOr(value sql.NullString, fallback string) string {
	if value.Valid && value.String != "" {
		return value.String
	}
	return fallback
}

func nullable(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
