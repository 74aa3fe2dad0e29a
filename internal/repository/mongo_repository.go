package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxUpdateAttempts bounds the optimistic retry loop of UpdateStatus.
const maxUpdateAttempts = 5

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type itemDocument struct {
	PizzaID  int64                `bson:"pizza_id"`
	Name     string               `bson:"name"`
	Price    primitive.Decimal128 `bson:"price"`
	Quantity int                  `bson:"quantity"`
}

type orderDocument struct {
	ID        int64                `bson:"_id"`
	Name      string               `bson:"customer_name"`
	Phone     string               `bson:"phone"`
	Address   string               `bson:"address"`
	Notes     string               `bson:"notes"`
	Items     []itemDocument       `bson:"items"`
	Total     primitive.Decimal128 `bson:"total"`
	Status    string               `bson:"status"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt *time.Time           `bson:"updated_at,omitempty"`
	Version   int64                `bson:"version"`
}

type counterDocument struct {
	Seq int64 `bson:"seq"`
}

// MongoRepository stores one document per order. Ids come from an atomic $inc on
// a counter document; status updates are compare-and-swap on a version field.
type MongoRepository struct {
	db       *mongo.Database
	orders   *mongo.Collection
	counters *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		db:       db,
		orders:   db.Collection("orders"),
		counters: db.Collection("counters"),
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
		},
	}

	_, err := m.orders.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (m *MongoRepository) nextID(ctx context.Context) (int64, error) {
	var counter counterDocument
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate order id: %w", err)
	}
	return counter.Seq, nil
}

func (m *MongoRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := checkNewOrder(order); err != nil {
		return nil, err
	}

	id, err := m.nextID(ctx)
	if err != nil {
		return nil, err
	}

	stored := order.Clone()
	stored.ID = id
	stored.CreatedAt = createdAt(order).Truncate(time.Millisecond)
	stored.UpdatedAt = nil

	doc, err := toDocument(stored)
	if err != nil {
		return nil, err
	}

	if _, err := m.orders.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}
	return stored, nil
}

func (m *MongoRepository) findDocument(ctx context.Context, id int64) (*orderDocument, error) {
	var doc orderDocument
	err := m.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &doc, nil
}

func (m *MongoRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	doc, err := m.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func (m *MongoRepository) List(ctx context.Context) ([]*domain.Order, error) {
	cursor, err := m.orders.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		order, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return orders, nil
}

// UpdateStatus reads the order, runs mutate and writes back only if the version
// is unchanged. A lost race re-reads and runs mutate again against the new state.
func (m *MongoRepository) UpdateStatus(ctx context.Context, id int64, mutate StatusMutator) (*domain.Order, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := m.findDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		order, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}

		change, err := mutate(*order.Clone())
		if err != nil {
			return nil, err
		}
		change.UpdatedAt = change.UpdatedAt.UTC().Truncate(time.Millisecond)

		filter := bson.M{"_id": id, "version": doc.Version}
		update := bson.M{
			"$set": bson.M{
				"status":     string(change.Status),
				"updated_at": change.UpdatedAt,
			},
			"$inc": bson.M{"version": int64(1)},
		}

		result, err := m.orders.UpdateOne(ctx, filter, update)
		if err != nil {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
		if result.MatchedCount == 1 {
			order.Apply(change)
			return order, nil
		}
	}
	return nil, fmt.Errorf("update order %d: %w", id, ErrConflict)
}

func (m *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.db.Client().Disconnect(ctx)
}

func toDocument(order *domain.Order) (*orderDocument, error) {
	total, err := primitive.ParseDecimal128(order.Total.String())
	if err != nil {
		return nil, fmt.Errorf("convert total: %w", err)
	}

	items := make([]itemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		price, err := primitive.ParseDecimal128(item.Price.String())
		if err != nil {
			return nil, fmt.Errorf("convert price of pizza %d: %w", item.PizzaID, err)
		}
		items = append(items, itemDocument{
			PizzaID:  item.PizzaID,
			Name:     item.Name,
			Price:    price,
			Quantity: item.Quantity,
		})
	}

	return &orderDocument{
		ID:        order.ID,
		Name:      order.Name,
		Phone:     order.Phone,
		Address:   order.Address,
		Notes:     order.Notes,
		Items:     items,
		Total:     total,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}, nil
}

func fromDocument(doc *orderDocument) (*domain.Order, error) {
	total, err := decimal.NewFromString(doc.Total.String())
	if err != nil {
		return nil, fmt.Errorf("order %d: parse total: %w", doc.ID, err)
	}

	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		price, err := decimal.NewFromString(item.Price.String())
		if err != nil {
			return nil, fmt.Errorf("order %d: parse price: %w", doc.ID, err)
		}
		items = append(items, domain.OrderItem{
			PizzaID:  item.PizzaID,
			Name:     item.Name,
			Price:    price,
			Quantity: item.Quantity,
		})
	}

	order := &domain.Order{
		ID:        doc.ID,
		Name:      doc.Name,
		Phone:     doc.Phone,
		Address:   doc.Address,
		Notes:     doc.Notes,
		Items:     items,
		Total:     total,
		Status:    domain.OrderStatus(doc.Status),
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt,
	}
	if err := order.CheckTotal(); err != nil {
		return nil, err
	}
	return order, nil
}
