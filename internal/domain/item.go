package domain

// ItemType distinguishes the two kinds of bookable inventory.
type ItemType string

const (
	ItemTypeClass ItemType = "class"
	ItemTypeEvent ItemType = "event"
)

// ParseItemType validates a caller-supplied item type.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeClass, ItemTypeEvent:
		return ItemType(s), nil
	}
	return "", ErrInvalidItemType
}

// ItemKey identifies a bookable item across both item types.
type ItemKey struct {
	Type ItemType
	ID   string
}

// Item is a bookable class or event with fixed seat capacity.
// ConfirmedCount is owned by the booking flow; the ledger only writes it
// inside the confirm transaction.
type Item struct {
	Key            ItemKey
	Name           string
	Capacity       int
	ConfirmedCount int
}
