package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/repository"
	"github.com/trungse123/review-backend/pkg/database"
	apperrors "github.com/trungse123/review-backend/pkg/errors"
)

// CollectionReviews is the collection holding review documents.
const CollectionReviews = "reviews"

// reviewDocument is the stored shape of a review. Field names follow the
// storefront's camelCase convention, but _id is the review's UUID string, so
// documents keyed by ObjectId are not addressable through this store.
type reviewDocument struct {
	ID           string          `bson:"_id"`
	ProductID    string          `bson:"productId"`
	CustomerName string          `bson:"name"`
	Phone        string          `bson:"phone"`
	Email        string          `bson:"email"`
	Title        string          `bson:"title"`
	Content      string          `bson:"content"`
	Rating       *float64        `bson:"rating"`
	ImageRefs    []string        `bson:"imageUrls"`
	VideoRef     string          `bson:"videoUrl"`
	IsPurchased  bool            `bson:"isPurchased"`
	Status       string          `bson:"status"`
	Replies      []replyDocument `bson:"replies"`
	CreatedAt    time.Time       `bson:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt"`
}

type replyDocument struct {
	Name      string    `bson:"name"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

// sortSpecs maps each sort key onto a Mongo sort document.
var sortSpecs = map[string]bson.D{
	domain.SortNewest:     {{Key: "createdAt", Value: -1}},
	domain.SortOldest:     {{Key: "createdAt", Value: 1}},
	domain.SortRatingDesc: {{Key: "rating", Value: -1}, {Key: "createdAt", Value: -1}},
	domain.SortRatingAsc:  {{Key: "rating", Value: 1}, {Key: "createdAt", Value: -1}},
}

// ReviewRepository implements repository.ReviewRepository using MongoDB.
type ReviewRepository struct {
	coll *mongo.Collection
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates a new MongoDB-backed review repository.
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection(CollectionReviews)}
}

// EnsureIndexes creates the indexes backing the cooldown lookup, listing
// and quota queries. It is safe to call on every startup.
func (r *ReviewRepository) EnsureIndexes(ctx context.Context) (err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "EnsureReviewIndexes", "createIndexes reviews")
	defer func() { end(err) }()

	_, err = r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create review indexes: %w", err)
	}
	return nil
}

// Create inserts a new review document.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "CreateReview", "insert reviews")
	defer func() { end(err) }()

	if _, err = r.coll.InsertOne(ctx, toDocument(review)); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "GetReview", "find reviews by _id")
	defer func() { end(err) }()

	review, err := decodeOne(r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}))
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// LatestByPhoneAndProduct returns the newest review for the pair.
func (r *ReviewRepository) LatestByPhoneAndProduct(ctx context.Context, phone, productID string) (_ *domain.Review, err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "LatestReviewByPhoneAndProduct", "find reviews by phone, productId sort createdAt desc")
	defer func() { end(err) }()

	filter := bson.D{{Key: "phone", Value: phone}, {Key: "productId", Value: productID}}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	review, err := decodeOne(r.coll.FindOne(ctx, filter, opts))
	if err != nil {
		return nil, fmt.Errorf("get latest review: %w", err)
	}
	return review, nil
}

// AppendReply pushes the reply onto the thread server-side and returns the
// document as it is after the update.
func (r *ReviewRepository) AppendReply(ctx context.Context, id string, reply domain.Reply, updatedAt time.Time) (_ *domain.Review, err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "AppendReviewReply", "findAndModify reviews $push replies")
	defer func() { end(err) }()

	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "replies", Value: replyDocument(reply)}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: updatedAt}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	review, err := decodeOne(r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts))
	if err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}
	return review, nil
}

// Approve flips a pending review to approved.
func (r *ReviewRepository) Approve(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "ApproveReview", "update reviews set status approved")
	defer func() { end(err) }()

	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: domain.StatusApproved}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: domain.StatusApproved},
		{Key: "updatedAt", Value: at},
	}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("approve review: %w", err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}
	if n == 0 {
		return false, apperrors.ErrNotFound
	}
	return false, nil
}

// ListApproved returns a page of approved reviews for a product. Mongo
// orders missing ratings lowest, so they lead rating_asc and trail
// rating_desc.
func (r *ReviewRepository) ListApproved(ctx context.Context, filter repository.ReviewFilter) (_ []domain.Review, _ int, err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "ListApprovedReviews", "find reviews by productId, status approved")
	defer func() { end(err) }()

	query := bson.D{
		{Key: "productId", Value: filter.ProductID},
		{Key: "status", Value: domain.StatusApproved},
	}
	if filter.Rating != nil {
		query = append(query, bson.E{Key: "rating", Value: *filter.Rating})
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	sort, ok := sortSpecs[filter.Sort]
	if !ok {
		sort = sortSpecs[domain.SortNewest]
	}
	opts := options.Find().
		SetSort(sort).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer cur.Close(ctx)

	var docs []reviewDocument
	if err = cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(docs))
	for i := range docs {
		reviews = append(reviews, *docs[i].toDomain())
	}

	return reviews, int(total), nil
}

// ApprovedRatings returns the ratings of all approved reviews of a product.
func (r *ReviewRepository) ApprovedRatings(ctx context.Context, productID string) (_ []*float64, err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "ApprovedReviewRatings", "find reviews.rating by productId, status approved")
	defer func() { end(err) }()

	query := bson.D{
		{Key: "productId", Value: productID},
		{Key: "status", Value: domain.StatusApproved},
	}
	opts := options.Find().SetProjection(bson.D{{Key: "rating", Value: 1}})

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		Rating *float64 `bson:"rating"`
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ratings: %w", err)
	}

	ratings := make([]*float64, 0, len(docs))
	for _, d := range docs {
		ratings = append(ratings, d.Rating)
	}
	return ratings, nil
}

// CountApproved counts approved reviews by phone created in [from, to).
func (r *ReviewRepository) CountApproved(ctx context.Context, phone string, from, to time.Time) (_ int, err error) {
	ctx, end := database.TraceStoreOp(ctx, "mongodb", "CountApprovedReviews", "count reviews by phone, status, createdAt range")
	defer func() { end(err) }()

	query := bson.D{
		{Key: "phone", Value: phone},
		{Key: "status", Value: domain.StatusApproved},
		{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lt", Value: to}}},
	}

	n, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("count approved reviews: %w", err)
	}
	return int(n), nil
}

func decodeOne(res *mongo.SingleResult) (*domain.Review, error) {
	var doc reviewDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func toDocument(review *domain.Review) reviewDocument {
	replies := make([]replyDocument, 0, len(review.Replies))
	for _, reply := range review.Replies {
		replies = append(replies, replyDocument(reply))
	}
	imageRefs := review.ImageRefs
	if imageRefs == nil {
		imageRefs = []string{}
	}

	return reviewDocument{
		ID:           review.ID,
		ProductID:    review.ProductID,
		CustomerName: review.CustomerName,
		Phone:        review.Phone,
		Email:        review.Email,
		Title:        review.Title,
		Content:      review.Content,
		Rating:       review.Rating,
		ImageRefs:    imageRefs,
		VideoRef:     review.VideoRef,
		IsPurchased:  review.IsPurchased,
		Status:       review.Status,
		Replies:      replies,
		CreatedAt:    review.CreatedAt,
		UpdatedAt:    review.UpdatedAt,
	}
}

func (d *reviewDocument) toDomain() *domain.Review {
	replies := make([]domain.Reply, 0, len(d.Replies))
	for _, reply := range d.Replies {
		replies = append(replies, domain.Reply(reply))
	}
	imageRefs := d.ImageRefs
	if imageRefs == nil {
		imageRefs = []string{}
	}

	return &domain.Review{
		ID:           d.ID,
		ProductID:    d.ProductID,
		CustomerName: d.CustomerName,
		Phone:        d.Phone,
		Email:        d.Email,
		Title:        d.Title,
		Content:      d.Content,
		Rating:       d.Rating,
		ImageRefs:    imageRefs,
		VideoRef:     d.VideoRef,
		IsPurchased:  d.IsPurchased,
		Status:       d.Status,
		Replies:      replies,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
