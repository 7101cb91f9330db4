// Package platform defines the contracts every backend-as-a-service adapter
// implements: token resolution, table records and object storage.
package platform

import (
	"context"
	"encoding/json"
	"io"
)

// Identity is the caller resolved from a bearer token. It lives for one request.
type Identity struct {
	UserID string
	Email  string
	Token  string
}

// Authenticator resolves a bearer token into the caller identity.
type Authenticator interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// Credential selects which privilege a storage call runs under.
type Credential struct {
	token   string
	userID  string
	service bool
}

// ServiceRole returns the elevated credential used for records and bucket administration.
func ServiceRole() Credential {
	return Credential{service: true}
}

// Caller returns a credential scoped to the caller's own token.
func Caller(id Identity) Credential {
	return Credential{token: id.Token, userID: id.UserID}
}

func (c Credential) Token() string   { return c.token }
func (c Credential) UserID() string  { return c.userID }
func (c Credential) IsService() bool { return c.service }

// Row is a single table row keyed by column name.
type Row map[string]any

// Filter is an equality predicate on one column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Order sorts by one column.
type Order struct {
	Column string
	Desc   bool
}

// Embed pulls related rows into each parent row under Alias.
//
// A to-one embed follows Parent[ForeignKey] to Table.id. A to-many embed
// (Many) collects Table rows whose ForeignKey equals the parent id. Inner
// drops parents that have no related rows.
type Embed struct {
	Alias      string
	Table      string
	Columns    []string
	ForeignKey string
	Many       bool
	Inner      bool
	Order      []Order
	Limit      int
}

// Name returns the key the embed is stored under.
func (e Embed) Name() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Table
}

// Query describes a filtered, ordered read of one table.
type Query struct {
	Table   string
	Columns []string
	Embeds  []Embed
	Filters []Filter
	Order   []Order
	Offset  int
	Limit   int
}

// Records is table access with the service-role credential.
// SelectOne returns a KindNotFound error when no row matches.
type Records interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	SelectOne(ctx context.Context, q Query) (Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, set Row, filters ...Filter) ([]Row, error)
	Upsert(ctx context.Context, table string, row Row, onConflict ...string) (Row, error)
	Delete(ctx context.Context, table string, filters ...Filter) error
	Call(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error)
}

// Object is an upload payload.
type Object struct {
	Body         io.Reader
	Size         int64
	ContentType  string
	CacheControl string
}

// BucketSpec configures a bucket at creation.
type BucketSpec struct {
	Name             string
	Public           bool
	FileSizeLimit    int64
	AllowedMimeTypes []string
}

// Bucket is a bucket listing entry.
type Bucket struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

// Objects is bucket-scoped object storage. Uploads never overwrite an
// existing key. CreateBucket returns ErrBucketExists for a known bucket.
type Objects interface {
	Upload(ctx context.Context, cred Credential, bucket, key string, obj Object) error
	Remove(ctx context.Context, cred Credential, bucket string, keys ...string) error
	PublicURL(bucket, key string) string
	ListBuckets(ctx context.Context) ([]Bucket, error)
	CreateBucket(ctx context.Context, spec BucketSpec) error
}

// Backend bundles the three collaborators a deployment talks to.
type Backend struct {
	Auth    Authenticator
	Records Records
	Objects Objects
}
