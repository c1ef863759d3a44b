package sqlstore

import "github.com/goliatone/go-signal-relay/core"

var (
	_ core.DeliveryLogStore = (*DeliveryLogStore)(nil)
	_ core.DeliveryLogStore = (*CachedDeliveryLogStore)(nil)
)
