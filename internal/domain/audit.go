package domain

import "time"

// Журнал значимых действий с балансом
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Категории
const (
	AuditCategoryAuth       = "auth"
	AuditCategoryBalance    = "balance"
	AuditCategoryReferral   = "referral"
	AuditCategoryWithdrawal = "withdrawal"
)

const (
	AuditActionRegister        = "register"
	AuditActionChatRegister    = "chat_register"
	AuditActionRewardClaim     = "reward_claim"
	AuditActionReferralCredit  = "referral_credit"
	AuditActionWithdrawRequest = "withdraw_request"
)
