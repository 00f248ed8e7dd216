package types

// VoteValue is the vote direction as sent by clients.
type VoteValue string

const (
	VoteUp   VoteValue = "+1"
	VoteDown VoteValue = "-1"
)

// Comment is a single comment on a post. Comments are append-only and
// returned in insertion order.
type Comment struct {
	Author   string `json:"author"`
	Contents string `json:"contents"`
}

// Transaction is one wallet credit. Amounts are always positive.
type Transaction struct {
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
}

// Wallet is the accumulated balance plus the full credit history for a user.
type Wallet struct {
	Balance      float64       `json:"balance"`
	Transactions []Transaction `json:"transactions"`
}

// PostSummary is the shape returned by feed and blog listings.
type PostSummary struct {
	ID     int64  `json:"id"`
	Author string `json:"author"`
	Title  string `json:"title"`
}

// PostDetail is the shape returned when a single post is fetched.
type PostDetail struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Contents  string    `json:"contents"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	RewonBy   []string  `json:"rewon_by"`
	Comments  []Comment `json:"comments"`
}

type PostCreateRequest struct {
	Title    string `json:"title" validate:"required,max=20"`
	Contents string `json:"contents" validate:"required,max=500"`
}

type VoteRequest struct {
	Vote VoteValue `json:"vote" validate:"required,oneof=+1 -1"`
}

type CommentRequest struct {
	Contents string `json:"contents" validate:"required"`
}
