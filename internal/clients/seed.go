package clients

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var sampleClients = []Client{
	{FullName: "Wassim Sabry", Email: "weza.sabr@gmail.com", Phone: "01212973618", Goal: GoalWeightLoss, StartDate: "2025-01-01", Age: 30, Gender: "Male"},
	{FullName: "Sarah Ali", Email: "sarah.ali@gmail.com", Phone: "01237983620", Goal: GoalMuscleGain, StartDate: "2025-02-05", Age: 27, Gender: "Female"},
	{FullName: "Michael Girgis", Email: "mike.gi@gmail.com", Phone: "01112900018", Goal: GoalGeneralFitness, StartDate: "2025-02-15", Age: 35, Gender: "Male"},
	{FullName: "Amina Hassan", Email: "amina.hassan@gmail.com", Phone: "01014993119", Goal: GoalFlexibility, StartDate: "2025-03-01", Age: 29, Gender: "Female"},
	{FullName: "David Jameel", Email: "david.j@gmail.com", Phone: "01200473817", Goal: GoalStrengthTraining, StartDate: "2025-03-12", Age: 32, Gender: "Male"},
	{FullName: "Layla Omar", Email: "layla.omar@gmail.com", Phone: "01222843618", Goal: GoalEndurance, StartDate: "2025-03-20", Age: 26, Gender: "Female"},
	{FullName: "Chris Evans", Email: "chris.evans@gmail.com", Phone: "01221133618", Goal: GoalCardio, StartDate: "2025-04-02", Age: 34, Gender: "Male"},
	{FullName: "Mona Farid", Email: "mona.farid@gmail.com", Phone: "01213879198", Goal: GoalWeightLoss, StartDate: "2025-04-10", Age: 28, Gender: "Female"},
	{FullName: "Ahmed Salah", Email: "ahmed.salah@gmail.com", Phone: "01102572019", Goal: GoalMuscleGain, StartDate: "2025-04-18", Age: 31, Gender: "Male"},
	{FullName: "Mostafa Ahmed", Email: "Mostafa.ahmed@gmail.com", Phone: "01019975698", Goal: GoalGeneralFitness, StartDate: "2025-05-01", Age: 29, Gender: "Male"},
}

// SampleClients returns a fresh copy of the bootstrap roster, without ids.
func SampleClients() []Client {
	out := make([]Client, len(sampleClients))
	copy(out, sampleClients)
	for i := range out {
		out[i].TrainingHistory = []HistoryEntry{}
	}
	return out
}

// SeedIfEmpty writes the sample roster when the slot holds no records. A corrupt slot
// is left alone. Returns the number of seeded clients.
func (r *Repo) SeedIfEmpty(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	empty, err := r.store.IsEmpty(ctx)
	if err != nil {
		return 0, fmt.Errorf("check slot: %w", err)
	}
	if !empty {
		log.Debugln("clients slot not empty, skipping seed")
		return 0, nil
	}

	seeded := SampleClients()
	for i := range seeded {
		id, err := r.freshID(seeded[:i])
		if err != nil {
			return 0, err
		}
		seeded[i].ID = id
	}

	if err := r.store.Save(ctx, seeded); err != nil {
		return 0, fmt.Errorf("save seeded clients: %w", err)
	}

	log.Infof("seeded %d sample clients", len(seeded))
	return len(seeded), nil
}
