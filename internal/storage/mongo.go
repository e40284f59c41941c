package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"lesson-shop/internal/config"
	"lesson-shop/internal/logger"
	"lesson-shop/internal/models"
)

const (
	lessonsCollection = "lessons"
	ordersCollection  = "orders"
)

type lessonDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Subject            string             `bson:"subject"`
	Location           string             `bson:"location"`
	Price              float64            `bson:"price"`
	Spaces             int                `bson:"spaces"`
	Image              string             `bson:"image"`
	AvailableInventory int                `bson:"availableInventory"`
}

type orderDetailsDocument struct {
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
	Email string `bson:"email,omitempty"`
}

type lineItemDocument struct {
	LessonID primitive.ObjectID `bson:"lessonId"`
	Subject  string             `bson:"subject"`
	Quantity int                `bson:"quantity"`
}

type orderDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Details   orderDetailsDocument `bson:"orderDetails"`
	Items     []lineItemDocument   `bson:"cartItems"`
	OrderDate time.Time            `bson:"orderDate"`
	Status    string               `bson:"status"`
}

// MongoStore is the document store backend. A single client is shared by all
// requests; the driver pools connections internally.
type MongoStore struct {
	client  *mongo.Client
	lessons *mongo.Collection
	orders  *mongo.Collection
	log     *logger.Logger
}

func NewMongoStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*MongoStore, error) {
	log.LogDatabase("CONNECT", "mongo", fmt.Sprintf("Connecting to %s (database %s)", cfg.Host, cfg.Name))

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Error("DATABASE", "Failed to connect to MongoDB: "+err.Error())
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		log.Error("DATABASE", "Failed to ping MongoDB: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := client.Database(cfg.Name)
	store := &MongoStore{
		client:  client,
		lessons: db.Collection(lessonsCollection),
		orders:  db.Collection(ordersCollection),
		log:     log,
	}

	log.LogDatabase("SUCCESS", "mongo", "MongoDB connection established")
	return store, nil
}

// EnsureIndexes creates the subject index used by prefix search.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	s.log.LogDatabase("MIGRATE", "mongo", "Ensuring lessons.subject index")

	_, err := s.lessons.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subject", Value: 1}},
		Options: options.Index().SetName("idx_subject"),
	})
	if err != nil {
		return fmt.Errorf("failed to create subject index: %w", err)
	}
	return nil
}

func (s *MongoStore) ListLessons(ctx context.Context) ([]*models.Lesson, error) {
	s.log.LogDatabase("FIND", "mongo", "Listing lessons")
	return s.findLessons(ctx, bson.M{})
}

func (s *MongoStore) SearchLessons(ctx context.Context, prefix string) ([]*models.Lesson, error) {
	s.log.LogDatabase("FIND", "mongo", fmt.Sprintf("Searching lessons with prefix %q", prefix))
	return s.findLessons(ctx, subjectPrefixFilter(prefix))
}

func (s *MongoStore) findLessons(ctx context.Context, filter bson.M) ([]*models.Lesson, error) {
	cursor, err := s.lessons.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		s.log.Error("DATABASE", "Failed to query lessons: "+err.Error())
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}

	var docs []lessonDocument
	if err := cursor.All(ctx, &docs); err != nil {
		s.log.Error("DATABASE", "Failed to decode lessons: "+err.Error())
		return nil, fmt.Errorf("failed to decode lessons: %w", err)
	}

	lessons := make([]*models.Lesson, 0, len(docs))
	for i := range docs {
		lessons = append(lessons, docs[i].toModel())
	}
	return lessons, nil
}

func (s *MongoStore) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc lessonDocument
	if err := s.lessons.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.log.LogDatabase("NOT_FOUND", "mongo", fmt.Sprintf("Lesson %s not found", id))
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get lesson %s: %s", id, err.Error()))
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) SaveLesson(ctx context.Context, lesson *models.Lesson) error {
	doc := lessonFromModel(lesson)
	doc.ID = primitive.NewObjectID()

	if _, err := s.lessons.InsertOne(ctx, doc); err != nil {
		s.log.Error("DATABASE", "Failed to insert lesson: "+err.Error())
		return fmt.Errorf("failed to save lesson: %w", err)
	}

	lesson.ID = doc.ID.Hex()
	s.log.LogDatabase("INSERT", "mongo", fmt.Sprintf("Lesson %s saved", lesson.ID))
	return nil
}

func (s *MongoStore) UpdateLesson(ctx context.Context, id string, update models.LessonUpdate) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	set := lessonUpdateSet(update)
	if len(set) == 0 {
		return nil
	}

	res, err := s.lessons.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to update lesson %s: %s", id, err.Error()))
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	s.log.LogDatabase("UPDATE", "mongo", fmt.Sprintf("Lesson %s updated", id))
	return nil
}

func (s *MongoStore) DeleteLesson(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := s.lessons.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to delete lesson %s: %s", id, err.Error()))
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	s.log.LogDatabase("DELETE", "mongo", fmt.Sprintf("Lesson %s deleted", id))
	return nil
}

func (s *MongoStore) ReserveSpaces(ctx context.Context, lessonID string, quantity int) error {
	oid, err := parseObjectID(lessonID)
	if err != nil {
		return err
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	res, err := s.lessons.UpdateOne(ctx, reserveFilter(oid, quantity), spacesIncrement(-quantity))
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to reserve spaces on %s: %s", lessonID, err.Error()))
		return fmt.Errorf("failed to reserve spaces: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// The precondition failed; find out whether the lesson is gone or short.
	n, err := s.lessons.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to check lesson: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrInsufficientSpaces
}

func (s *MongoStore) ReleaseSpaces(ctx context.Context, lessonID string, quantity int) error {
	oid, err := parseObjectID(lessonID)
	if err != nil {
		return err
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	res, err := s.lessons.UpdateOne(ctx, bson.M{"_id": oid}, spacesIncrement(quantity))
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to release spaces on %s: %s", lessonID, err.Error()))
		return fmt.Errorf("failed to release spaces: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SaveOrder(ctx context.Context, order *models.Order) error {
	doc, err := orderFromModel(order)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := s.orders.InsertOne(ctx, doc); err != nil {
		s.log.Error("DATABASE", "Failed to insert order: "+err.Error())
		return fmt.Errorf("failed to save order: %w", err)
	}

	order.ID = doc.ID.Hex()
	s.log.LogDatabase("INSERT", "mongo", fmt.Sprintf("Order %s saved", order.ID))
	return nil
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc orderDocument
	if err := s.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ListOrders(ctx context.Context) ([]*models.Order, error) {
	cursor, err := s.orders.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*models.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toModel())
	}
	return orders, nil
}

func (s *MongoStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	s.log.LogDatabase("CLOSE", "mongo", "Disconnecting from MongoDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func subjectPrefixFilter(prefix string) bson.M {
	if prefix == "" {
		return bson.M{}
	}
	return bson.M{"subject": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"}}
}

func reserveFilter(oid primitive.ObjectID, quantity int) bson.M {
	return bson.M{"_id": oid, "spaces": bson.M{"$gte": quantity}}
}

func spacesIncrement(delta int) bson.M {
	return bson.M{"$inc": bson.M{"spaces": delta, "availableInventory": delta}}
}

func lessonUpdateSet(u models.LessonUpdate) bson.M {
	set := bson.M{}
	if u.Subject != nil {
		set["subject"] = *u.Subject
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Spaces != nil {
		set["spaces"] = *u.Spaces
		set["availableInventory"] = *u.Spaces
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	return set
}

func lessonFromModel(l *models.Lesson) lessonDocument {
	return lessonDocument{
		Subject:            l.Subject,
		Location:           l.Location,
		Price:              l.Price,
		Spaces:             l.Spaces,
		Image:              l.Image,
		AvailableInventory: l.AvailableInventory,
	}
}

func (d *lessonDocument) toModel() *models.Lesson {
	return &models.Lesson{
		ID:                 d.ID.Hex(),
		Subject:            d.Subject,
		Location:           d.Location,
		Price:              d.Price,
		Spaces:             d.Spaces,
		Image:              d.Image,
		AvailableInventory: d.AvailableInventory,
	}
}

func orderFromModel(o *models.Order) (orderDocument, error) {
	doc := orderDocument{
		Details: orderDetailsDocument{
			Name:  o.Details.Name,
			Phone: o.Details.Phone,
			Email: o.Details.Email,
		},
		Items:     make([]lineItemDocument, 0, len(o.Items)),
		OrderDate: o.OrderDate,
		Status:    string(o.Status),
	}
	for _, item := range o.Items {
		oid, err := parseObjectID(item.LessonID)
		if err != nil {
			return orderDocument{}, err
		}
		doc.Items = append(doc.Items, lineItemDocument{LessonID: oid, Subject: item.Subject, Quantity: item.Quantity})
	}
	return doc, nil
}

func (d *orderDocument) toModel() *models.Order {
	o := &models.Order{
		ID: d.ID.Hex(),
		Details: models.OrderDetails{
			Name:  d.Details.Name,
			Phone: d.Details.Phone,
			Email: d.Details.Email,
		},
		Items:     make([]models.LineItem, 0, len(d.Items)),
		OrderDate: d.OrderDate,
		Status:    models.OrderStatus(d.Status),
	}
	for _, item := range d.Items {
		o.Items = append(o.Items, models.LineItem{LessonID: item.LessonID.Hex(), Subject: item.Subject, Quantity: item.Quantity})
	}
	return o
}
