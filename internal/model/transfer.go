package model

import (
	"time"

	"gorm.io/gorm"
)

type TransferStatus int

const (
	TransferAccepted TransferStatus = iota
	TransferWaiting
	TransferRefused
	TransferSuspended
	TransferRefund
)

func (s TransferStatus) String() string {
	switch s {
	case TransferAccepted:
		return "已接收"
	case TransferWaiting:
		return "待确认"
	case TransferRefused:
		return "已拒绝"
	case TransferSuspended:
		return "已终止"
	case TransferRefund:
		return "已退回"
	}
	return "未知"
}

type TransferRecord struct {
	Model
	ProposerKind  AccountKind    `gorm:"type:varchar(10);index:idx_proposer" json:"proposer_kind"`
	ProposerID    uint           `gorm:"index:idx_proposer" json:"proposer_id"`
	RecipientKind AccountKind    `gorm:"type:varchar(10);index:idx_recipient" json:"recipient_kind"`
	RecipientID   uint           `gorm:"index:idx_recipient" json:"recipient_id"`
	Amount        float64        `json:"amount"`
	Status        TransferStatus `gorm:"index" json:"status"`
	ActivityID    *uint          `gorm:"index" json:"activity_id,omitempty"`
	Message       string         `gorm:"type:varchar(255)" json:"message"`
	StartTime     time.Time      `json:"start_time"`
	FinishTime    *time.Time     `json:"finish_time,omitempty"`
}

func NewTransferRecord(proposer, recipient Ref, amount float64, message string, activityID *uint, status TransferStatus, now time.Time) *TransferRecord {
	rec := &TransferRecord{
		ProposerKind:  proposer.Kind,
		ProposerID:    proposer.ID,
		RecipientKind: recipient.Kind,
		RecipientID:   recipient.ID,
		Amount:        RoundPoint(amount),
		Status:        status,
		ActivityID:    activityID,
		Message:       message,
		StartTime:     now,
	}
	if status != TransferWaiting {
		rec.FinishTime = &now
	}
	return rec
}

func (r *TransferRecord) BeforeSave(*gorm.DB) error {
	r.Amount = RoundPoint(r.Amount)
	return nil
}

func (r *TransferRecord) Proposer() Ref {
	return Ref{Kind: r.ProposerKind, ID: r.ProposerID}
}

func (r *TransferRecord) Recipient() Ref {
	return Ref{Kind: r.RecipientKind, ID: r.RecipientID}
}

func (r *TransferRecord) LockKey() string {
	return "transfer:" + itoa(r.ID)
}
