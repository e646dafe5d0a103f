package api

// MembershipType представляет тариф клуба (BASIC, PREMIUM, VIP)
type MembershipType struct {
	Name                         string  `json:"name"`
	Description                  string  `json:"description"`
	MonthlyPrice                 float64 `json:"monthlyPrice"`
	ID                           int64   `json:"idMembershipType"`
	GroupClassesSessionsIncluded int     `json:"groupClassesSessionsIncluded"`
	PersonalTrainingIncluded     int     `json:"personalTrainingIncluded"`
	AccessToAllLocations         bool    `json:"accessToAllLocation"`
	SpecializedClassesIncluded   bool    `json:"specializedClassesIncluded"`
}

// Subscription statuses returned by the server.
const (
	SubscriptionActive    = "ACTIVE"
	SubscriptionExpired   = "EXPIRED"
	SubscriptionCancelled = "CANCELLED"
	SubscriptionSuspended = "SUSPENDED"
)

// SubscriptionRequest представляет запрос оформления подписки
type SubscriptionRequest struct {
	UserID           int64 `json:"userId"`
	MembershipTypeID int64 `json:"membershipTypeId"`
}

// SubscriptionResponse представляет оформленную подписку
type SubscriptionResponse struct {
	UserName              string  `json:"userName"`
	MembershipTypeName    string  `json:"membershipTypeName"`
	MembershipDescription string  `json:"membershipDescription"`
	SubscriptionDate      string  `json:"subscriptionDate"` // 'YYYY-MM-DD'
	ExpirationDate        string  `json:"expirationDate"`
	Status                string  `json:"status"`
	MonthlyPrice          float64 `json:"monthlyPrice"`
	SubscriptionID        int64   `json:"subscriptionId"`
	UserID                int64   `json:"userId"`
	MembershipTypeID      int64   `json:"membershipTypeId"`
	IsActive              bool    `json:"isActive"`
}

// PaymentIntentRequest представляет запрос создания платежа у провайдера карт
// Провайдер обрабатывает транзакцию сам, клиент получает только client secret
type PaymentIntentRequest struct {
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// MembershipUpdate представляет push-сообщение об изменении членства
type MembershipUpdate struct {
	Status             string `json:"status,omitempty"`
	MembershipTypeName string `json:"membershipTypeName,omitempty"`
	ExpirationDate     string `json:"expirationDate,omitempty"`
	UserID             int64  `json:"userId,omitempty"`
	SubscriptionID     int64  `json:"subscriptionId,omitempty"`
}
