package styleswap

import "time"

const (
	CreditTxBonus    = "b"
	CreditTxSpend    = "s"
	CreditTxPurchase = "p"
)

// CreditTx is a ledger entry for every change of an account's credit balance
type CreditTx struct {
	CreatedAt time.Time `json:"created_at"`
	Txid      uint      `json:"txid" gorm:"primaryKey;autoIncrement:true"`
	AccountId string    `json:"account_id" gorm:"index;size:64;not null"`
	Type      string    `json:"type" gorm:"size:1;not null"` // Type: "b":bonus, "s":spend, "p":purchase
	Amount    int64     `json:"amount"`
	Message   string    `json:"message"`
}
