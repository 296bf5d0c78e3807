package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wintercreative/lagoon/internal/domain/group"
	"go.uber.org/zap"
)

const groupKeyPrefix = "lagoon:groups:"

// CachedGroupDirectory is a read-through Redis cache in front of a
// group.Directory. Group reads are served from Redis when possible; any
// write invalidates every cached group entry because renames and moves
// change the derived paths of whole subtrees.
//
// Cache failures never fail the request. A broken Redis degrades to the
// underlying directory with a warning.
type CachedGroupDirectory struct {
	next   group.Directory
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGroupDirectory creates a caching decorator around next
func NewCachedGroupDirectory(next group.Directory, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedGroupDirectory {
	return &CachedGroupDirectory{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// cachedGroup is the wire form of a group in Redis
type cachedGroup struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	Kind            string    `json:"kind"`
	Currency        string    `json:"currency,omitempty"`
	BillingSoftware string    `json:"billingSoftware,omitempty"`
	Projects        []int     `json:"projects,omitempty"`
	RealmRoles      []string  `json:"realmRoles,omitempty"`
}

func toCachedGroup(g group.Group) cachedGroup {
	return cachedGroup{
		ID:              g.ID,
		Name:            g.Name,
		Path:            g.Path,
		Kind:            string(g.Kind),
		Currency:        g.Currency,
		BillingSoftware: g.BillingSoftware,
		Projects:        g.Projects.IDs(),
		RealmRoles:      g.RealmRoles,
	}
}

func (c cachedGroup) toDomain() group.Group {
	return group.Group{
		ID:              c.ID,
		Name:            c.Name,
		Path:            c.Path,
		Kind:            group.Kind(c.Kind),
		Currency:        c.Currency,
		BillingSoftware: c.BillingSoftware,
		Projects:        group.NewProjectSet(c.Projects...),
		RealmRoles:      c.RealmRoles,
	}
}

// FindGroupByID serves the group from cache when present
func (c *CachedGroupDirectory) FindGroupByID(ctx context.Context, id uuid.UUID) (group.Group, error) {
	key := groupKeyPrefix + "id:" + id.String()
	if g, ok := c.getGroup(ctx, key); ok {
		return g, nil
	}
	g, err := c.next.FindGroupByID(ctx, id)
	if err != nil {
		return group.Group{}, err
	}
	c.setGroup(ctx, key, g)
	return g, nil
}

// FindGroupByName serves the group from cache when present
func (c *CachedGroupDirectory) FindGroupByName(ctx context.Context, name string) (group.Group, error) {
	key := groupKeyPrefix + "name:" + name
	if g, ok := c.getGroup(ctx, key); ok {
		return g, nil
	}
	g, err := c.next.FindGroupByName(ctx, name)
	if err != nil {
		return group.Group{}, err
	}
	c.setGroup(ctx, key, g)
	return g, nil
}

// ListGroups serves the full flattened listing from cache when present
func (c *CachedGroupDirectory) ListGroups(ctx context.Context) ([]group.Group, error) {
	key := groupKeyPrefix + "all"
	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached []cachedGroup
		if err := json.Unmarshal(payload, &cached); err == nil {
			groups := make([]group.Group, 0, len(cached))
			for _, cg := range cached {
				groups = append(groups, cg.toDomain())
			}
			return groups, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Group cache read failed", zap.String("key", key), zap.Error(err))
	}

	groups, err := c.next.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	cached := make([]cachedGroup, 0, len(groups))
	for _, g := range groups {
		cached = append(cached, toCachedGroup(g))
	}
	if payload, err := json.Marshal(cached); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("Group cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return groups, nil
}

// CreateGroup writes through and invalidates the cache
func (c *CachedGroupDirectory) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	created, err := c.next.CreateGroup(ctx, g)
	if err != nil {
		return group.Group{}, err
	}
	c.invalidate(ctx)
	return created, nil
}

// UpdateGroup writes through and invalidates the cache
func (c *CachedGroupDirectory) UpdateGroup(ctx context.Context, id uuid.UUID, patch group.Patch) (group.Group, error) {
	updated, err := c.next.UpdateGroup(ctx, id, patch)
	if err != nil {
		return group.Group{}, err
	}
	c.invalidate(ctx)
	return updated, nil
}

// DeleteGroup writes through and invalidates the cache
func (c *CachedGroupDirectory) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if err := c.next.DeleteGroup(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// SetParent writes through and invalidates the cache
func (c *CachedGroupDirectory) SetParent(ctx context.Context, childID, parentID uuid.UUID) error {
	if err := c.next.SetParent(ctx, childID, parentID); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// ListGroupMembers passes through uncached
func (c *CachedGroupDirectory) ListGroupMembers(ctx context.Context, id uuid.UUID) ([]group.UserRef, error) {
	return c.next.ListGroupMembers(ctx, id)
}

// AddMember passes through uncached
func (c *CachedGroupDirectory) AddMember(ctx context.Context, userID, groupID uuid.UUID) error {
	return c.next.AddMember(ctx, userID, groupID)
}

// RemoveMember passes through uncached
func (c *CachedGroupDirectory) RemoveMember(ctx context.Context, userID, groupID uuid.UUID) error {
	return c.next.RemoveMember(ctx, userID, groupID)
}

// FindUser passes through uncached
func (c *CachedGroupDirectory) FindUser(ctx context.Context, id uuid.UUID) (group.User, error) {
	return c.next.FindUser(ctx, id)
}

// FindRoleByName passes through uncached
func (c *CachedGroupDirectory) FindRoleByName(ctx context.Context, name string) (group.Role, error) {
	return c.next.FindRoleByName(ctx, name)
}

// BindRealmRole writes through and invalidates the cache
func (c *CachedGroupDirectory) BindRealmRole(ctx context.Context, groupID uuid.UUID, role group.Role) error {
	if err := c.next.BindRealmRole(ctx, groupID, role); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedGroupDirectory) getGroup(ctx context.Context, key string) (group.Group, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Group cache read failed", zap.String("key", key), zap.Error(err))
		}
		return group.Group{}, false
	}
	var cached cachedGroup
	if err := json.Unmarshal(payload, &cached); err != nil {
		return group.Group{}, false
	}
	return cached.toDomain(), true
}

func (c *CachedGroupDirectory) setGroup(ctx context.Context, key string, g group.Group) {
	payload, err := json.Marshal(toCachedGroup(g))
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Group cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate drops every cached group entry
func (c *CachedGroupDirectory) invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, groupKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Group cache invalidation scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Group cache invalidation failed", zap.Error(err))
	}
}

// Ensure CachedGroupDirectory implements group.Directory
var _ group.Directory = (*CachedGroupDirectory)(nil)
