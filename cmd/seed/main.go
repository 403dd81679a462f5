// Command seed loads the demo dataset into the configured document store:
// two institutions with their welcome posts, a sample student, and one
// pending onboarding request. Safe to re-run; documents are upserted by id.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/squadran/squadran-api/config"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
)

func startStore(env *config.EnviornmentVariable) (database.Storage, error) {
	switch env.STORE_BACKEND {
	case "file":
		return database.StartFileStore(env.STORE_DATA_DIR)
	case "postgres":
		return database.StartGORM()
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want postgres or file)", env.STORE_BACKEND)
	}
}

func main() {
	if err := config.LoadENV(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	env, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	store, err := startStore(env)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := seed(ctx, store); err != nil {
		log.Fatal(err)
	}
	log.Println("Demo data seeded")
}

func seed(ctx context.Context, store database.Storage) error {
	institutions := []model.Institution{
		{
			ID:          "inst_nfsu",
			Name:        "National Forensic Sciences University",
			Code:        "NFSU",
			Logo:        "https://cdn-icons-png.flaticon.com/512/3135/3135715.png",
			Description: "Premier forensic science institution",
			ThemeColor:  "#4AA4F2",
			EmailDomain: "nfsu.ac.in",
		},
		{
			ID:          "inst_iit",
			Name:        "Indian Institute of Technology Delhi",
			Code:        "IITD",
			Logo:        "https://cdn-icons-png.flaticon.com/512/3135/3135715.png",
			Description: "Leading engineering institute",
			ThemeColor:  "#6C63FF",
			EmailDomain: "iitd.ac.in",
		},
	}

	for _, inst := range institutions {
		if err := store.Put(ctx, database.CollectionInstitutions, inst.ID, inst); err != nil {
			return fmt.Errorf("seed institution %s: %w", inst.ID, err)
		}

		welcome := model.Post{
			ID:            "post_welcome_" + inst.ID,
			InstitutionID: inst.ID,
			AuthorID:      "system",
			AuthorName:    inst.Code + " Admin",
			AuthorRole:    model.RoleInstitutionAdmin,
			Title:         "Welcome to " + inst.Name,
			Content:       "Welcome to the official " + inst.Name + " social platform powered by Squadran.",
			LikedBy:       []string{},
			Comments:      []model.Comment{},
			Status:        model.PostVerified,
			Type:          model.PostNewsletter,
			Timestamp:     model.NowMillis(),
		}
		if err := store.Put(ctx, database.CollectionPosts, welcome.ID, welcome); err != nil {
			return fmt.Errorf("seed welcome post for %s: %w", inst.ID, err)
		}
	}

	student := model.UserProfile{
		UID:           "u_demo_rohan",
		InstitutionID: "inst_nfsu",
		Name:          "Rohan Sharma",
		Email:         "rohan.sharma@nfsu.ac.in",
		RollNo:        "NFSU2021001",
		Role:          model.RoleStudent,
		Avatar:        model.DefaultAvatar("Rohan Sharma"),
		Batch:         "2021-2025",
		Bio:           "Student",
	}
	if err := store.Put(ctx, database.CollectionUsers, student.UID, student); err != nil {
		return fmt.Errorf("seed student: %w", err)
	}

	request := model.OnboardingRequest{
		ID:            "req_demo_stanford",
		InstituteName: "Stanford University",
		ContactName:   "Jane Doe",
		Email:         "admissions@stanford.edu",
		EmailDomain:   "stanford.edu",
		Status:        model.RequestPending,
	}
	if err := store.Put(ctx, database.CollectionRequests, request.ID, request); err != nil {
		return fmt.Errorf("seed onboarding request: %w", err)
	}

	return nil
}
