package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"motodirectory/libs/directory"
)

const defaultMigrateBatchSize = 100

type migrateSummary struct {
	ShopsMigrated    int
	ShopsFailed      int
	CountriesCreated int
	CitiesCreated    int
}

func runMigrate(ctx context.Context, cfg *Config, logger *slog.Logger, args []string) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	jsonPath := flags.String("json", defaultDataPath, "directory JSON to import")
	clearFirst := flags.Bool("clear", false, "delete existing shops, cities and countries first")
	batchSize := flags.Int("batch-size", defaultMigrateBatchSize, "shops per insert transaction")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *batchSize < 1 {
		return fmt.Errorf("-batch-size must be >= 1")
	}

	file, err := os.Open(*jsonPath)
	if err != nil {
		return err
	}
	ds, err := directory.Decode(file)
	file.Close()
	if err != nil {
		return err
	}
	logger.Info("directory file loaded", "path", *jsonPath, "shops", len(ds.Shops), "countries", len(ds.Countries))

	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	app := &App{cfg: cfg, db: db, log: logger}
	if err := app.runMigrations(ctx); err != nil {
		return err
	}

	summary, err := app.migrateDirectory(ctx, ds, *clearFirst, *batchSize)
	if err != nil {
		return err
	}
	logger.Info("migration complete",
		"shops_migrated", summary.ShopsMigrated,
		"shops_failed", summary.ShopsFailed,
		"countries_created", summary.CountriesCreated,
		"cities_created", summary.CitiesCreated,
	)
	return nil
}

func (a *App) migrateDirectory(ctx context.Context, ds *directory.Dataset, clearFirst bool, batchSize int) (migrateSummary, error) {
	var summary migrateSummary

	if clearFirst {
		a.log.Warn("clearing existing directory data")
		if err := a.storeClearDirectory(ctx); err != nil {
			return summary, err
		}
	}

	countryIDs := map[string]int{}
	for _, name := range ds.Countries.SortedCountries(directory.Locale{}) {
		id, err := a.storeUpsertCountry(ctx, name, countryCodeForName(name))
		if err != nil {
			a.log.Error("country insert failed", "country", name, "err", err)
			continue
		}
		countryIDs[name] = id
		summary.CountriesCreated++
	}

	for country, cities := range ds.Countries {
		countryID, ok := countryIDs[country]
		if !ok {
			continue
		}
		for _, city := range cities {
			if city == unknownCity {
				continue
			}
			created, err := a.storeInsertCity(ctx, countryID, city)
			if err != nil {
				a.log.Error("city insert failed", "country", country, "city", city, "err", err)
				continue
			}
			if created {
				summary.CitiesCreated++
			}
		}
	}

	rows := make([]shopRow, 0, len(ds.Shops))
	for i := range ds.Shops {
		row, err := shopRowFromRecord(&ds.Shops[i])
		if err != nil {
			summary.ShopsFailed++
			a.log.Warn("shop not migrated", "name", ds.Shops[i].Name, "err", err)
			continue
		}
		rows = append(rows, row)
	}

	batches := batchBounds(len(rows), batchSize)
	for n, bounds := range batches {
		batch := rows[bounds[0]:bounds[1]]
		if err := a.storeInsertShopBatch(ctx, batch); err != nil {
			summary.ShopsFailed += len(batch)
			a.log.Error("shop batch failed", "batch", n+1, "of", len(batches), "err", err)
			continue
		}
		summary.ShopsMigrated += len(batch)
		a.log.Info("shop batch inserted", "batch", n+1, "of", len(batches), "shops", len(batch))
	}

	if err := a.storeUpdateShopCounts(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}

// shopRowFromRecord maps a directory record onto the shops table. Placeholder
// values become NULL; records without coordinates are rejected.
func shopRowFromRecord(shop *directory.ShopRecord) (shopRow, error) {
	lat, err := fieldCoordinate(shop.Latitude)
	if err != nil {
		return shopRow{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := fieldCoordinate(shop.Longitude)
	if err != nil {
		return shopRow{}, fmt.Errorf("longitude: %w", err)
	}

	var city, country string
	if strings.Contains(shop.City, directory.LocationSeparator) {
		city = strings.TrimSpace(shop.CityName())
		country = strings.TrimSpace(shop.Country())
	}
	if city == unknownCity {
		city = ""
	}
	if country == unknownCountry {
		country = ""
	}

	var street string
	if shop.Address != "" && shop.Address != addressNotAvailable {
		street, _, _ = strings.Cut(shop.Address, directory.LocationSeparator)
	}

	return shopRow{
		Name:         shop.Name,
		BusinessType: shop.BusinessType.Or(directory.DefaultBusinessType),
		Latitude:     lat,
		Longitude:    lng,
		Street:       nullable(street),
		City:         nullable(city),
		Country:      nullable(country),
		Phone:        nullableUnless(shop.Phone.String(), directory.NotAvailable),
		Website:      nullableUnless(shop.Website.String(), directory.NotAvailable),
		Hours:        nullableUnless(shop.Hours.String(), directory.DefaultHours),
		Rating:       nullableUnless(shop.Rating.String(), directory.NotAvailable),
		ReviewsCount: nullable(shop.ReviewsCount.String()),
	}, nil
}

func fieldCoordinate(field directory.Field) (float64, error) {
	if !field.Truthy() {
		return 0, errMissingCoordinates
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(field.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q", field.String())
	}
	if value == 0 {
		return 0, errMissingCoordinates
	}
	return value, nil
}

func nullableUnless(value, placeholder string) sql.NullString {
	if value == placeholder {
		return sql.NullString{}
	}
	return nullable(value)
}

// batchBounds splits n items into [start, end) ranges of at most size.
func batchBounds(n, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	var bounds [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}
