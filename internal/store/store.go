// Package store persists index values, housing company facts, maximum price
// calculations and regulation results with gorm.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/internal/maxprice"
	"github.com/iwvelando/hitas-engine/internal/regulation"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store is the gorm backed persistence. It implements indices.Repository,
// maxprice.Recorder and regulation.Store.
type Store struct {
	logger *zap.Logger
	db     *gorm.DB
}

var (
	_ indices.Repository = (*Store)(nil)
	_ maxprice.Recorder  = (*Store)(nil)
	_ regulation.Store   = (*Store)(nil)
)

// Open opens the SQLite database at dsn and migrates it.
func Open(log *zap.Logger, dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dsn)
	}
	return New(log, db)
}

// New wraps an open database and migrates it.
func New(log *zap.Logger, db *gorm.DB) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{logger: log, db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	err := s.db.AutoMigrate(
		&IndexValue{},
		&HousingCompany{},
		&Apartment{},
		&Sale{},
		&Owner{},
		&Ownership{},
		&ExternalSalesData{},
		&MaxPriceCalculation{},
		&RegulationResult{},
	)
	return errors.Wrap(err, "failed to migrate database")
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get database handle")
	}
	return sqlDB.Close()
}

// Get implements indices.Repository.
func (s *Store) Get(ctx context.Context, series indices.Series, month datetime.Month) (decimal.Decimal, error) {
	var row IndexValue
	err := s.db.WithContext(ctx).
		Where("series = ? AND month = ?", string(series), month.String()).
		Take(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, &indices.MissingIndexError{Series: series, Month: month}
	}
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to read %s for %s", series, month)
	}
	return row.Value, nil
}

// SaveIndices inserts or replaces index values.
func (s *Store) SaveIndices(ctx context.Context, values []indices.Value) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]IndexValue, len(values))
	for i, v := range values {
		rows[i] = IndexValue{Series: string(v.Series), Month: v.Month.String(), Value: v.Value}
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return errors.Wrap(err, "failed to save index values")
	}
	s.logger.Debug("saved index values",
		zap.String("op", "store.SaveIndices"),
		zap.Int("count", len(rows)),
	)
	return nil
}

// SaveHousingCompany inserts or replaces a company, its apartments and their
// first sales.
func (s *Store) SaveHousingCompany(ctx context.Context, company regulation.CompanyFacts) error {
	hc := company.HousingCompany
	improvements, err := json.Marshal(hc.Improvements)
	if err != nil {
		return errors.Wrap(err, "failed to encode improvements")
	}

	record := HousingCompany{
		ID:               hc.ID,
		DisplayName:      hc.DisplayName,
		PostalCode:       hc.PostalCode,
		CompletionDate:   hc.CompletionDate,
		OldHitasRuleset:  hc.OldHitasRuleset,
		RegulationStatus: string(hc.RegulationStatus),
		TotalSurfaceArea: hc.TotalSurfaceArea,
		AcquisitionPrice: hc.AcquisitionPrice,
		Improvements:     improvements,
	}
	if record.RegulationStatus == "" {
		record.RegulationStatus = string(domain.Regulated)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
			return errors.Wrapf(err, "failed to save housing company %s", hc.ID)
		}
		for _, a := range company.Apartments {
			a.HousingCompanyID = hc.ID
			facts, err := json.Marshal(a)
			if err != nil {
				return errors.Wrapf(err, "failed to encode apartment %s", a.ID)
			}
			apartment := Apartment{ID: a.ID, HousingCompanyID: hc.ID, Facts: facts}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&apartment).Error; err != nil {
				return errors.Wrapf(err, "failed to save apartment %s", a.ID)
			}
			if err := tx.Where("apartment_id = ? AND first_sale = ?", a.ID, true).Delete(&Sale{}).Error; err != nil {
				return errors.Wrapf(err, "failed to replace first sale of apartment %s", a.ID)
			}
			if a.FirstSale != nil {
				sale := saleRecord(a.ID, *a.FirstSale, true)
				if err := tx.Create(&sale).Error; err != nil {
					return errors.Wrapf(err, "failed to save first sale of apartment %s", a.ID)
				}
			}
		}
		return nil
	})
}

// SaveResales replaces the sales of an apartment made after its first sale.
func (s *Store) SaveResales(ctx context.Context, apartmentID string, sales []domain.Sale) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("apartment_id = ? AND first_sale = ?", apartmentID, false).Delete(&Sale{}).Error; err != nil {
			return errors.Wrapf(err, "failed to replace sales of apartment %s", apartmentID)
		}
		if len(sales) == 0 {
			return nil
		}
		rows := make([]Sale, len(sales))
		for i, sale := range sales {
			rows[i] = saleRecord(apartmentID, sale, false)
		}
		return errors.Wrapf(tx.Create(&rows).Error, "failed to save sales of apartment %s", apartmentID)
	})
}

func saleRecord(apartmentID string, sale domain.Sale, first bool) Sale {
	return Sale{
		ApartmentID:                         apartmentID,
		PurchaseDate:                        sale.PurchaseDate,
		PurchaseMonth:                       datetime.MonthOf(sale.PurchaseDate).String(),
		PurchasePrice:                       sale.PurchasePrice,
		ApartmentShareOfHousingCompanyLoans: sale.ApartmentShareOfHousingCompanyLoans,
		ExcludeFromStatistics:               sale.ExcludeFromStatistics,
		FirstSale:                           first,
	}
}

// SaveOwnership stores an owner and links it to an apartment.
func (s *Store) SaveOwnership(ctx context.Context, owner Owner, ownership domain.Ownership) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&owner).Error; err != nil {
			return errors.Wrapf(err, "failed to save owner %s", owner.ID)
		}
		record := Ownership{
			OwnerID:          ownership.OwnerID,
			ApartmentID:      ownership.ApartmentID,
			HousingCompanyID: ownership.HousingCompanyID,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return errors.Wrapf(err, "failed to save ownership of apartment %s", ownership.ApartmentID)
		}
		return nil
	})
}

// Owner returns one owner.
func (s *Store) Owner(ctx context.Context, id string) (*Owner, error) {
	var owner Owner
	if err := s.db.WithContext(ctx).Take(&owner, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to read owner %s", id)
	}
	return &owner, nil
}

// SaveExternalSalesData inserts or replaces the dataset of a quarter.
func (s *Store) SaveExternalSalesData(ctx context.Context, data *regulation.ExternalSalesData) error {
	quarters, err := json.Marshal(data.Quarters)
	if err != nil {
		return errors.Wrap(err, "failed to encode external sales data")
	}
	record := ExternalSalesData{CalculationQuarter: data.CalculationQuarter.String(), Quarters: quarters}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	return errors.Wrapf(err, "failed to save external sales data for %s", data.CalculationQuarter)
}

// HousingCompany returns one housing company with its apartments.
func (s *Store) HousingCompany(ctx context.Context, id string) (*regulation.CompanyFacts, error) {
	var record HousingCompany
	if err := s.db.WithContext(ctx).Preload("Apartments").Take(&record, "id = ?", id).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to read housing company %s", id)
	}
	company, err := record.facts()
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// Apartment returns one apartment together with its housing company facts.
func (s *Store) Apartment(ctx context.Context, id string) (*domain.ApartmentFacts, *domain.HousingCompanyFacts, error) {
	var record Apartment
	if err := s.db.WithContext(ctx).Take(&record, "id = ?", id).Error; err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read apartment %s", id)
	}
	company, err := s.HousingCompany(ctx, record.HousingCompanyID)
	if err != nil {
		return nil, nil, err
	}
	for i := range company.Apartments {
		if company.Apartments[i].ID == id {
			return &company.Apartments[i], &company.HousingCompany, nil
		}
	}
	return nil, nil, errors.Errorf("apartment %s not found in housing company %s", id, record.HousingCompanyID)
}

// HousingCompanies implements regulation.Store.
func (s *Store) HousingCompanies(ctx context.Context) ([]regulation.CompanyFacts, error) {
	var records []HousingCompany
	if err := s.db.WithContext(ctx).Preload("Apartments").Order("id").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to read housing companies")
	}
	companies := make([]regulation.CompanyFacts, 0, len(records))
	for _, r := range records {
		company, err := r.facts()
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, nil
}

func (r HousingCompany) facts() (regulation.CompanyFacts, error) {
	company := regulation.CompanyFacts{
		HousingCompany: domain.HousingCompanyFacts{
			ID:               r.ID,
			DisplayName:      r.DisplayName,
			PostalCode:       r.PostalCode,
			CompletionDate:   r.CompletionDate,
			OldHitasRuleset:  r.OldHitasRuleset,
			RegulationStatus: domain.RegulationStatus(r.RegulationStatus),
			TotalSurfaceArea: r.TotalSurfaceArea,
			AcquisitionPrice: r.AcquisitionPrice,
		},
	}
	if len(r.Improvements) > 0 {
		if err := json.Unmarshal(r.Improvements, &company.HousingCompany.Improvements); err != nil {
			return company, errors.Wrapf(err, "failed to decode improvements of housing company %s", r.ID)
		}
	}
	for _, a := range r.Apartments {
		var facts domain.ApartmentFacts
		if err := json.Unmarshal(a.Facts, &facts); err != nil {
			return company, errors.Wrapf(err, "failed to decode apartment %s", a.ID)
		}
		company.Apartments = append(company.Apartments, facts)
	}
	return company, nil
}

// DecidedHousingCompanies implements regulation.Store.
func (s *Store) DecidedHousingCompanies(ctx context.Context, quarter datetime.Quarter) (map[string]bool, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&RegulationResult{}).
		Where("quarter = ?", quarter.String()).
		Pluck("housing_company_id", &ids).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read regulation results for %s", quarter)
	}
	decided := make(map[string]bool, len(ids))
	for _, id := range ids {
		decided[id] = true
	}
	return decided, nil
}

// Sales implements regulation.Store. Each sale carries its apartment's
// surface area and its company's postal code.
func (s *Store) Sales(ctx context.Context, from, to datetime.Month) ([]regulation.Sale, error) {
	var rows []Sale
	err := s.db.WithContext(ctx).
		Where("purchase_month BETWEEN ? AND ?", from.String(), to.String()).
		Order("purchase_date").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sales")
	}

	companies, err := s.HousingCompanies(ctx)
	if err != nil {
		return nil, err
	}
	type location struct {
		postalCode  string
		surfaceArea decimal.Decimal
	}
	apartments := make(map[string]location)
	for _, c := range companies {
		for _, a := range c.Apartments {
			apartments[a.ID] = location{postalCode: c.HousingCompany.PostalCode, surfaceArea: a.SurfaceArea}
		}
	}

	sales := make([]regulation.Sale, 0, len(rows))
	for _, r := range rows {
		loc, ok := apartments[r.ApartmentID]
		if !ok {
			continue
		}
		sales = append(sales, regulation.Sale{
			Sale: domain.Sale{
				PurchaseDate:                        r.PurchaseDate,
				PurchasePrice:                       r.PurchasePrice,
				ApartmentShareOfHousingCompanyLoans: r.ApartmentShareOfHousingCompanyLoans,
				ExcludeFromStatistics:               r.ExcludeFromStatistics,
			},
			ApartmentID: r.ApartmentID,
			PostalCode:  loc.postalCode,
			SurfaceArea: loc.surfaceArea,
			FirstSale:   r.FirstSale,
		})
	}
	return sales, nil
}

// ExternalSalesData implements regulation.Store.
func (s *Store) ExternalSalesData(ctx context.Context, quarter datetime.Quarter) (*regulation.ExternalSalesData, error) {
	var record ExternalSalesData
	err := s.db.WithContext(ctx).Take(&record, "calculation_quarter = ?", quarter.String()).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read external sales data for %s", quarter)
	}

	data := &regulation.ExternalSalesData{CalculationQuarter: quarter}
	if err := json.Unmarshal(record.Quarters, &data.Quarters); err != nil {
		return nil, errors.Wrapf(err, "failed to decode external sales data for %s", quarter)
	}
	return data, nil
}

// Ownerships implements regulation.Store.
func (s *Store) Ownerships(ctx context.Context) ([]domain.Ownership, error) {
	var rows []Ownership
	if err := s.db.WithContext(ctx).Order("owner_id, apartment_id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to read ownerships")
	}
	out := make([]domain.Ownership, len(rows))
	for i, r := range rows {
		out[i] = domain.Ownership{OwnerID: r.OwnerID, ApartmentID: r.ApartmentID, HousingCompanyID: r.HousingCompanyID}
	}
	return out, nil
}

// SaveOutcome implements regulation.Store.
func (s *Store) SaveOutcome(ctx context.Context, outcome *regulation.Outcome) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range outcome.Rows {
			payload, err := json.Marshal(row)
			if err != nil {
				return errors.Wrapf(err, "failed to encode result of housing company %s", row.HousingCompanyID)
			}
			record := RegulationResult{
				Quarter:          outcome.Quarter.String(),
				HousingCompanyID: row.HousingCompanyID,
				CalculationMonth: outcome.CalculationMonth.String(),
				Decision:         string(row.Decision),
				Price:            row.ComparedPrice,
				Row:              payload,
			}
			if err := tx.Create(&record).Error; err != nil {
				if isUniqueViolation(err) {
					return &regulation.DuplicateRegulationError{Quarter: outcome.Quarter}
				}
				return errors.Wrapf(err, "failed to save result of housing company %s", row.HousingCompanyID)
			}

			if row.Decision.Released() {
				err := tx.Model(&HousingCompany{}).
					Where("id = ?", row.HousingCompanyID).
					Update("regulation_status", string(domain.ReleasedByHitas)).Error
				if err != nil {
					return errors.Wrapf(err, "failed to release housing company %s", row.HousingCompanyID)
				}
			}
		}

		if len(outcome.ObfuscatedOwners) > 0 {
			err := tx.Model(&Owner{}).
				Where("id IN ?", outcome.ObfuscatedOwners).
				Updates(map[string]interface{}{"name": "", "identifier_code": "", "email": "", "obfuscated": true}).Error
			if err != nil {
				return errors.Wrap(err, "failed to obfuscate owners")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("saved regulation results",
		zap.String("op", "store.SaveOutcome"),
		zap.String("quarter", outcome.Quarter.String()),
		zap.Int("rows", len(outcome.Rows)),
		zap.Int("obfuscated_owners", len(outcome.ObfuscatedOwners)),
	)
	return nil
}

// RegulationResults returns the stored rows of a quarter.
func (s *Store) RegulationResults(ctx context.Context, quarter datetime.Quarter) ([]regulation.Row, error) {
	var records []RegulationResult
	err := s.db.WithContext(ctx).Where("quarter = ?", quarter.String()).Order("housing_company_id").Find(&records).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read regulation results for %s", quarter)
	}
	rows := make([]regulation.Row, len(records))
	for i, r := range records {
		if err := json.Unmarshal(r.Row, &rows[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to decode result of housing company %s", r.HousingCompanyID)
		}
	}
	return rows, nil
}

func isUniqueViolation(err error) bool {
	return stderrors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SaveCalculation implements maxprice.Recorder.
func (s *Store) SaveCalculation(ctx context.Context, result *maxprice.Result) error {
	id := uuid.New()
	createdAt := time.Now().UTC()
	result.ID = id.String()
	result.CreatedAt = createdAt

	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode calculation")
	}
	record := MaxPriceCalculation{
		ID:                id,
		ApartmentID:       result.ApartmentID,
		CalculationDate:   result.CalculationDate,
		ValidUntil:        result.ValidUntil,
		MaximumPrice:      result.MaximumPrice,
		MaximumPriceIndex: string(result.MaximumPriceIndex),
		RulesVersion:      result.RulesVersion,
		Result:            payload,
		CreatedAt:         createdAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrapf(err, "failed to save calculation for apartment %s", result.ApartmentID)
	}
	return nil
}

// Calculations returns the recorded calculations of an apartment, newest
// first. Calculation variables are decoded as generic JSON values.
func (s *Store) Calculations(ctx context.Context, apartmentID string) ([]maxprice.Result, error) {
	var records []MaxPriceCalculation
	err := s.db.WithContext(ctx).Where("apartment_id = ?", apartmentID).Order("created_at DESC").Find(&records).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read calculations of apartment %s", apartmentID)
	}
	results := make([]maxprice.Result, len(records))
	for i, r := range records {
		if err := json.Unmarshal(r.Result, &results[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to decode calculation %s", r.ID)
		}
	}
	return results, nil
}
