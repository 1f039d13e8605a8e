package models

// Choice is the participation mode a user picked for a ticket or product.
type Choice string

const (
	ChoiceNone     Choice = ""
	ChoiceLeader   Choice = "leader"
	ChoiceFollower Choice = "follower"
	ChoiceCouple   Choice = "couple"
	// ChoiceAdd is the boolean "add to order" choice of plain products.
	ChoiceAdd Choice = "y"
)

func (c Choice) IsValid() bool {
	switch c {
	case ChoiceNone, ChoiceLeader, ChoiceFollower, ChoiceCouple, ChoiceAdd:
		return true
	default:
		return false
	}
}

// WaitingListInfo mirrors the per-role waiting list counters of a workshop.
type WaitingListInfo struct {
	Leader   *int `json:"leader,omitempty"`
	Follower *int `json:"follower,omitempty"`
	Couple   *int `json:"couple,omitempty"`
}

// SelectableItem is a ticket or product the user may choose a participation mode for.
type SelectableItem struct {
	Key           string           `json:"key"`
	Title         string           `json:"title"`
	StartDatetime string           `json:"start_datetime,omitempty"`
	EndDatetime   string           `json:"end_datetime,omitempty"`
	Time          string           `json:"time,omitempty"`
	Level         string           `json:"level,omitempty"`
	Teachers      string           `json:"teachers,omitempty"`
	Available     *int             `json:"available,omitempty"`
	Price         *float64         `json:"price,omitempty"`
	Info          string           `json:"info,omitempty"`
	WaitingList   *WaitingListInfo `json:"waiting_list,omitempty"`
	Choice        Choice           `json:"choice"`
	Registered    bool             `json:"registered,omitempty"`
}

// SelectedItem is the {key, choice} projection of a chosen item.
type SelectedItem struct {
	Key    string `json:"key"`
	Choice Choice `json:"choice"`
}
