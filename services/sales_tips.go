package services

import (
	"context"
	"hash/fnv"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loro-platform/models"
)

// SalesTip is one entry of the compiled-in tip catalogue.
type SalesTip struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Topic   string `json:"topic"`
}

var SalesTips = []SalesTip{
	{"Listen first", "Ask two open questions before you pitch anything. Customers buy when they feel understood.", "discovery"},
	{"Follow up fast", "Send your quotation within 24 hours of the meeting while the need is still top of mind.", "follow-up"},
	{"Sell outcomes", "Describe what the customer gains, not what the product does.", "value"},
	{"Name the next step", "End every call with an agreed next step and a date.", "closing"},
	{"Know the decision maker", "Confirm who signs off before you send the final quotation.", "qualification"},
	{"Handle objections", "Treat an objection as a request for more information, then answer it with evidence.", "objections"},
	{"Use social proof", "Mention a similar customer who succeeded with the same solution.", "value"},
	{"Review your pipeline", "Spend ten minutes today moving stale quotations forward or closing them out.", "pipeline"},
	{"Bundle wisely", "Offer a complementary product when it solves a problem the customer already mentioned.", "upsell"},
	{"Keep notes", "Log what you learned after each conversation so the next call starts where this one ended.", "discipline"},
	{"Price with confidence", "State the price plainly and pause. Discounting before the customer asks erodes trust.", "negotiation"},
	{"Thank the client", "A short thank-you message after a deal builds the next one.", "relationship"},
}

// TipFor picks a tip deterministically for a user on a given day.
func TipFor(userID string, day time.Time) SalesTip {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	_, _ = h.Write([]byte(day.UTC().Format("2006-01-02")))
	return SalesTips[int(h.Sum32()%uint32(len(SalesTips)))]
}

// SalesTipBroadcaster sends every active user a daily tip, a batch at a time.
type SalesTipBroadcaster struct {
	DB            *gorm.DB
	Notifications *NotificationService
	BatchSize     int
	BatchDelay    time.Duration
	Now           func() time.Time
}

func NewSalesTipBroadcaster(db *gorm.DB, notifications *NotificationService, batchSize int, delay time.Duration) *SalesTipBroadcaster {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SalesTipBroadcaster{
		DB:            db,
		Notifications: notifications,
		BatchSize:     batchSize,
		BatchDelay:    delay,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// BroadcastResult summarises one run.
type BroadcastResult struct {
	Sent    int `json:"sent"`
	Batches int `json:"batches"`
}

// Run walks active users in id order. Batches are not retried; a failed batch is logged and skipped.
func (b *SalesTipBroadcaster) Run(ctx context.Context) (BroadcastResult, error) {
	var res BroadcastResult
	today := b.Now()
	lastID := ""

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var users []models.User
		q := b.DB.WithContext(ctx).Select("id", "organisation_id").
			Where("status = ?", models.UserActive).
			Order("id ASC").Limit(b.BatchSize)
		if lastID != "" {
			q = q.Where("id > ?", lastID)
		}
		if err := q.Find(&users).Error; err != nil {
			return res, err
		}
		if len(users) == 0 {
			break
		}
		lastID = users[len(users)-1].ID
		res.Batches++

		batch := make([]NotificationInput, 0, len(users))
		for _, u := range users {
			tip := TipFor(u.ID, today)
			batch = append(batch, NotificationInput{
				UserID:         u.ID,
				OrganisationID: u.OrganisationID,
				Type:           models.NotificationSalesTip,
				Title:          "💡 " + tip.Title,
				Message:        tip.Message,
				Metadata:       map[string]interface{}{"topic": tip.Topic, "day": today.Format("2006-01-02")},
			})
		}
		n, err := b.Notifications.NotifyMany(ctx, batch)
		if err != nil {
			log.Errorf("❌ [TIPS] batch %d failed: %v", res.Batches, err)
		}
		res.Sent += n

		if len(users) < b.BatchSize {
			break
		}
		if b.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(b.BatchDelay):
			}
		}
	}

	log.Printf("✅ [TIPS] broadcast sent %d tips in %d batch(es)", res.Sent, res.Batches)
	return res, nil
}
