package eventhandler

import (
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/pkg/logger"
)

// OnLevelUpHandler writes a log line for every level-up and for every
// achievement unlock, so both show up in the audit trail.
type OnLevelUpHandler struct {
	log *logger.Logger
}

// NewOnLevelUpHandler creates the handler.
func NewOnLevelUpHandler(log *logger.Logger) *OnLevelUpHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnLevelUpHandler{log: log.With(logger.Component("on_level_up"))}
}

// Register subscribes the handler to the bus.
func (h *OnLevelUpHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventLevelUp, h.Handle); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventAchievementUnlocked, h.Handle)
}

// Handle implements shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.LevelUpEvent:
		h.log.Info("level up",
			logger.UserID(e.UserID),
			logger.Int("old_level", e.OldLevel),
			logger.UserLevel(e.NewLevel),
			logger.Int("total_xp", e.TotalXP),
		)
	case shared.AchievementUnlockedEvent:
		h.log.Info("achievement unlocked",
			logger.UserID(e.UserID),
			logger.String("achievement_id", e.AchievementID),
		)
	}
	return nil
}
