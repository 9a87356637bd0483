package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod は注文の支払い方法を表す。
type PaymentMethod string

const (
	// PaymentDirectBankTransfer は前払い（決済ページへリダイレクトする）。
	PaymentDirectBankTransfer PaymentMethod = "direct-bank-transfer"
	// PaymentDirectBankTransferAlt は注文フォームの2つ目の銀行振込の選択肢。前払いとして扱う。
	PaymentDirectBankTransferAlt PaymentMethod = "direct-bank-transfer-2"
	// PaymentCashOnDelivery は代金引換。決済検証を必要としない。
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
)

// Valid は対応済みの支払い方法かを返す。
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentDirectBankTransfer, PaymentDirectBankTransferAlt, PaymentCashOnDelivery:
		return true
	}
	return false
}

// Address は配送先情報を表す。
type Address struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	CompanyName    string `json:"companyName,omitempty"`
	Country        string `json:"country"`
	Street         string `json:"street"`
	City           string `json:"city"`
	Province       string `json:"province"`
	ZipCode        string `json:"zipCode"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// OrderItem は注文に含まれる商品スナップショットと数量。
// SelectedColor/SelectedSize は未指定の場合nil（JSONではnull）。
type OrderItem struct {
	Product
	Quantity      int     `json:"quantity"`
	SelectedColor *string `json:"selectedColor"`
	SelectedSize  *string `json:"selectedSize"`
}

// Order はバックエンドに送信・取得する注文を表す。
type Order struct {
	ID            string          `json:"_id,omitempty"`
	Items         []OrderItem     `json:"items"`
	Amount        decimal.Decimal `json:"amount"`
	Address       Address         `json:"address"`
	Status        string          `json:"status,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Payment       bool            `json:"payment,omitempty"`
	Date          *time.Time      `json:"date,omitempty"`
}

// PlacedOrder は注文確定APIの結果。
// 前払いの場合はSessionURLに決済ページのURLが入る。
type PlacedOrder struct {
	OrderID    string `json:"orderId"`
	SessionURL string `json:"session_url,omitempty"`
}
