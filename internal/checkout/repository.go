package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"floorshop_back_end/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderDraft est tout ce qu'il faut pour écrire une commande, montants déjà calculés
type OrderDraft struct {
	Buyer         models.Buyer
	Billing       models.Address
	Shipping      models.ShippingAddress
	Items         []models.CartItem
	Money         MoneySnapshot
	OrderType     string
	Status        string
	PaymentMethod string
	Currency      string
	Reference     string
	Note          string
	Source        string
}

// PersistedOrder est le graphe commité
type PersistedOrder struct {
	Order           models.Order
	CustomerCreated bool
	Allocation      Allocation
}

// Repository écrit une commande complète de façon atomique
type Repository interface {
	CreateOrder(ctx context.Context, draft OrderDraft) (PersistedOrder, error)
}

// GormRepository implémente Repository dans une transaction GORM unique :
// numéro, client, commande, lignes et entrée de journal.
type GormRepository struct {
	db        *gorm.DB
	allocator *Allocator
	isolation sql.IsolationLevel
	now       func() time.Time
}

// GormOption personnalise un GormRepository
type GormOption func(*GormRepository)

// WithIsolation fixe le niveau d'isolation de la transaction (read committed en prod)
func WithIsolation(level sql.IsolationLevel) GormOption {
	return func(r *GormRepository) { r.isolation = level }
}

func WithRepositoryClock(now func() time.Time) GormOption {
	return func(r *GormRepository) { r.now = now }
}

func NewGormRepository(db *gorm.DB, allocator *Allocator, opts ...GormOption) *GormRepository {
	r := &GormRepository{
		db:        db,
		allocator: allocator,
		isolation: sql.LevelReadCommitted,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GormRepository) txOptions() []*sql.TxOptions {
	if r.isolation == sql.LevelDefault {
		return nil
	}
	return []*sql.TxOptions{{Isolation: r.isolation}}
}

// CreateOrder écrit le graphe de commande. Toute erreur annule l'ensemble.
func (r *GormRepository) CreateOrder(ctx context.Context, draft OrderDraft) (PersistedOrder, error) {
	var result PersistedOrder
	now := r.now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result.Allocation = r.allocator.Allocate(ctx, gormNumberChecker{tx: tx})

		customerID, created, err := upsertCustomer(tx, draft, now)
		if err != nil {
			return err
		}
		result.CustomerCreated = created

		order := models.Order{
			ID:              uuid.New(),
			DisplayNumber:   result.Allocation.Number,
			Reference:       draft.Reference,
			Status:          draft.Status,
			Type:            draft.OrderType,
			CustomerID:      customerID,
			BillingAddress:  draft.Billing,
			ShippingAddress: draft.Shipping,
			TotalNet:        draft.Money.TotalNet,
			TotalGross:      draft.Money.TotalGross,
			ShippingCost:    draft.Money.ShippingCost,
			Currency:        draft.Currency,
			PaymentMethod:   draft.PaymentMethod,
			Note:            draft.Note,
			CreatedAt:       now,
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("insertion commande: %w", err)
		}

		items := buildOrderItems(order.ID, draft)
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insertion lignes: %w", err)
			}
		}

		entry := models.OrderTimeline{
			ID:      uuid.New(),
			OrderID: order.ID,
			Type:    models.TimelineTypeSystem,
			Title:   "Commande passée sur la boutique",
			Metadata: map[string]any{
				"reference":      draft.Reference,
				"display_number": order.DisplayNumber,
				"payment_method": draft.PaymentMethod,
			},
			CreatedAt: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("insertion journal: %w", err)
		}

		order.Items = items
		order.Timeline = []models.OrderTimeline{entry}
		result.Order = order
		return nil
	}, r.txOptions()...)
	if err != nil {
		return PersistedOrder{}, err
	}

	return result, nil
}

// upsertCustomer réutilise le client existant (sans le modifier) ou le crée
// avec les coordonnées de cette commande comme valeurs par défaut
func upsertCustomer(tx *gorm.DB, draft OrderDraft, now time.Time) (uuid.UUID, bool, error) {
	email := NormalizeEmail(draft.Buyer.Email)

	existing, err := findCustomerByEmail(tx, email)
	if err != nil {
		return uuid.Nil, false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	customer := models.Customer{
		ID:              uuid.New(),
		Email:           email,
		Name:            draft.Buyer.Name,
		Phone:           draft.Buyer.Phone,
		TaxID:           draft.Buyer.TaxID,
		BillingAddress:  draft.Billing,
		ShippingAddress: draft.Shipping,
		Source:          draft.Source,
		CreatedAt:       now,
	}

	// Un checkout concurrent peut créer le même email entre la lecture et l'écriture
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&customer)
	if res.Error != nil {
		return uuid.Nil, false, fmt.Errorf("création client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := findCustomerByEmail(tx, email)
		if err != nil {
			return uuid.Nil, false, err
		}
		if existing == nil {
			return uuid.Nil, false, fmt.Errorf("client %s introuvable après conflit", email)
		}
		return existing.ID, false, nil
	}

	log.Printf("👤 Nouveau client créé: %s", email)
	return customer.ID, true, nil
}

func findCustomerByEmail(tx *gorm.DB, email string) (*models.Customer, error) {
	var customers []models.Customer
	if err := tx.Where("email = ?", email).Limit(1).Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("recherche client: %w", err)
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

func buildOrderItems(orderID uuid.UUID, draft OrderDraft) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(draft.Items))
	for i, item := range draft.Items {
		amounts := draft.Money.Items[i]
		items = append(items, models.OrderItem{
			ID:           uuid.New(),
			OrderID:      orderID,
			ProductID:    item.ProductID,
			SKU:          item.SKU,
			Name:         item.Name,
			Quantity:     item.Quantity,
			Unit:         item.Unit,
			UnitPriceNet: UnitNetPrice(amounts.Net, item.Quantity),
			TaxRate:      item.VatRate.InexactFloat64(),
			TotalNet:     amounts.Net,
			TotalGross:   amounts.Gross,
		})
	}
	return items
}

// NormalizeEmail met l'email sous la forme utilisée comme clé client
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type gormNumberChecker struct {
	tx *gorm.DB
}

func (c gormNumberChecker) DisplayNumberTaken(ctx context.Context, number string) (bool, error) {
	var count int64
	err := c.tx.WithContext(ctx).Model(&models.Order{}).Where("display_number = ?", number).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GormNumberSource dérive le prochain numéro du dernier numéro commité.
// Elle lit hors transaction : deux checkouts simultanés peuvent obtenir le même candidat.
type GormNumberSource struct {
	db     *gorm.DB
	prefix string
}

func NewGormNumberSource(db *gorm.DB, prefix string) *GormNumberSource {
	return &GormNumberSource{db: db, prefix: prefix}
}

// Last retourne la dernière valeur séquentielle commitée (0 si aucune).
// Tri par longueur d'abord : au-delà de 999999 le numéro s'allonge et ZM-1000000 doit passer devant ZM-999999.
func (s *GormNumberSource) Last(ctx context.Context) (int64, error) {
	var numbers []string
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("display_number LIKE ?", s.prefix+"-%").
		Order("LENGTH(display_number) DESC, display_number DESC").
		Limit(1).
		Pluck("display_number", &numbers).Error
	if err != nil {
		return 0, fmt.Errorf("lecture dernier numéro: %w", err)
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	seq, ok := ParseDisplayNumber(s.prefix, numbers[0])
	if !ok {
		return 0, fmt.Errorf("numéro de commande illisible: %q", numbers[0])
	}
	return seq, nil
}

func (s *GormNumberSource) Next(ctx context.Context) (string, error) {
	last, err := s.Last(ctx)
	if err != nil {
		return "", err
	}
	return FormatDisplayNumber(s.prefix, last+1), nil
}

// Migrate crée ou met à jour le schéma de commande
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimeline{},
	)
}
