package jobs

import (
	"log"
	"time"

	"vehicle-rental-server/database"
	"vehicle-rental-server/models"
)

// TripStatusJob advances bookings along the trip timeline: approved bookings
// whose start has passed become active, active bookings whose end has passed
// become completed.
type TripStatusJob struct {
	interval time.Duration
	stopChan chan bool
}

// NewTripStatusJob creates a new trip status job
func NewTripStatusJob() *TripStatusJob {
	return &TripStatusJob{
		interval: 5 * time.Minute,
		stopChan: make(chan bool),
	}
}

// Start begins the trip status job
func (j *TripStatusJob) Start() {
	go j.run()
	log.Println("🚀 Trip status job started")
}

// Stop stops the trip status job
func (j *TripStatusJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Trip status job stopped")
}

func (j *TripStatusJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.activateStartedTrips()
			j.completeFinishedTrips()
		case <-j.stopChan:
			return
		}
	}
}

// activateStartedTrips moves approved bookings past their start into active.
func (j *TripStatusJob) activateStartedTrips() {
	var started []models.Booking

	err := database.DB.Where("status = ? AND start <= ?",
		models.BookingStatusApproved, time.Now()).Find(&started).Error
	if err != nil {
		log.Printf("❌ Error checking started trips: %v", err)
		return
	}

	for _, booking := range started {
		booking.Status = models.BookingStatusActive
		if err := database.DB.Save(&booking).Error; err != nil {
			log.Printf("❌ Failed to activate booking %d: %v", booking.ID, err)
			continue
		}
		log.Printf("✅ Booking %d is now active", booking.ID)
	}
}

// completeFinishedTrips moves active bookings past their end into completed.
func (j *TripStatusJob) completeFinishedTrips() {
	var finished []models.Booking

	err := database.DB.Where(`status = ? AND "end" <= ?`,
		models.BookingStatusActive, time.Now()).Find(&finished).Error
	if err != nil {
		log.Printf("❌ Error checking finished trips: %v", err)
		return
	}

	for _, booking := range finished {
		now := time.Now()
		booking.Status = models.BookingStatusCompleted
		booking.CompletedAt = &now
		if err := database.DB.Save(&booking).Error; err != nil {
			log.Printf("❌ Failed to complete booking %d: %v", booking.ID, err)
			continue
		}
		log.Printf("✅ Booking %d completed", booking.ID)
	}
}
