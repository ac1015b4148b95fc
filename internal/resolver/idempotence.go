package resolver

import (
	"context"
	"fmt"

	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/common/uuid"
	"github.com/prismctl/prismctl/internal/entity"
)

// IdempotenceResource is the collection that hands out identifiers.
const IdempotenceResource = "/api/nutanix/v3/idempotence_identifiers"

// IdempotenceClient pre-allocates server generated uuids.
type IdempotenceClient struct {
	ClientID string
	client   *entity.Client
}

// NewIdempotenceClient returns a client identifying itself as clientID, or as
// a fresh random id when clientID is empty.
func NewIdempotenceClient(target entity.Target, transport httpclient.HTTPClientInterface, clientID string) *IdempotenceClient {
	if clientID == "" {
		clientID = uuid.NewString()
	}
	return &IdempotenceClient{
		ClientID: clientID,
		client:   entity.New(target, transport, IdempotenceResource),
	}
}

// Allocate asks the server for count identifiers in one call.
func (c *IdempotenceClient) Allocate(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		return nil, ErrInvalidArgs.New(fmt.Sprintf("count must be positive, got %d", count))
	}
	resp, err := c.client.Create(ctx, map[string]any{
		"client_identifier": c.ClientID,
		"count":             count,
	})
	if err != nil {
		return nil, err
	}
	return uuidList(resp, count)
}

// Salted asks the server for one stable identifier per name.
func (c *IdempotenceClient) Salted(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, ErrInvalidArgs.New("no names to salt")
	}
	resp, err := c.client.Create(ctx, map[string]any{"name_list": names}, entity.Endpoint("salted"))
	if err != nil {
		return nil, err
	}
	return uuidList(resp, len(names))
}

// SaltedIDs derives the stable identifiers locally. Identical name lists
// always yield identical ids.
func SaltedIDs(names []string) []string {
	return uuid.Salted(names)
}

func uuidList(resp *entity.Response, want int) ([]string, error) {
	list := resp.Get("uuid_list").Array()
	if len(list) != want {
		return nil, ErrInvalidIDs.New(fmt.Sprintf("asked for %d identifiers, got %d", want, len(list)))
	}
	out := make([]string, len(list))
	for i, v := range list {
		if !uuid.IsValid(v.String()) {
			return nil, ErrInvalidIDs.New(fmt.Sprintf("%q is not a uuid", v.String()))
		}
		out[i] = v.String()
	}
	return out, nil
}
