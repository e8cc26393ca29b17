package cmd

import (
	"context"
	"fmt"
	"strings"

	"socialfeed/models"
	"socialfeed/services"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagSeedUsers   int
	flagSeedFollows int
	flagSeedPosts   int
	flagSeedTopics  int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with generated users, follows and posts",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&flagSeedUsers, "users", 100, "number of users")
	seedCmd.Flags().IntVar(&flagSeedFollows, "follows", 20, "follows per user")
	seedCmd.Flags().IntVar(&flagSeedPosts, "posts", 500, "number of posts")
	seedCmd.Flags().IntVar(&flagSeedTopics, "topics", 10, "number of topics")
}

// inlineSubmitter выполняет задачи сразу, чтобы после seed ленты были готовы
type inlineSubmitter struct {
	queue  *services.QueueService
	logger *logrus.Entry
}

func (s inlineSubmitter) Submit(ctx context.Context, task services.FeedTask) {
	if err := s.queue.Execute(ctx, task); err != nil {
		s.logger.WithError(err).WithField("action", task.Action).Warn("seed task failed")
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks := inlineSubmitter{queue: a.queue, logger: a.logger}
	users := services.NewUserService(a.orm, tasks, a.logger)
	follows := services.NewFollowService(a.orm, tasks, a.logger)
	posts := services.NewPostService(a.orm, a.engine.Reader, tasks, a.logger)

	userIDs := make([]int64, 0, flagSeedUsers)
	for i := 0; i < flagSeedUsers; i++ {
		first := gofakeit.FirstName()
		user, err := users.CreateUser(ctx, services.NewUser{
			Nickname:  fmt.Sprintf("%s_%s", strings.ToLower(first), gofakeit.Numerify("######")),
			FirstName: first,
			LastName:  gofakeit.LastName(),
			Password:  gofakeit.Password(true, false, true, true, false, 10),
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		userIDs = append(userIDs, user.ID)
	}
	if len(userIDs) < 2 {
		return fmt.Errorf("need at least 2 users")
	}

	topicIDs := make([]int64, 0, flagSeedTopics)
	for i := 0; i < flagSeedTopics; i++ {
		topic, err := follows.CreateTopic(ctx, gofakeit.HackerNoun())
		if err != nil {
			return err
		}
		topicIDs = append(topicIDs, topic.ID)
	}

	for _, followerID := range userIDs {
		for j := 0; j < flagSeedFollows; j++ {
			authorID := userIDs[gofakeit.Number(0, len(userIDs)-1)]
			if authorID == followerID {
				continue
			}
			if err := follows.Follow(ctx, followerID, authorID); err != nil {
				return fmt.Errorf("failed to follow: %w", err)
			}
		}
	}

	for i := 0; i < flagSeedPosts; i++ {
		authorID := userIDs[gofakeit.Number(0, len(userIDs)-1)]
		var tags []int64
		if len(topicIDs) > 0 && gofakeit.Bool() {
			tags = []int64{topicIDs[gofakeit.Number(0, len(topicIDs)-1)]}
		}
		if _, err := posts.CreatePost(ctx, authorID, gofakeit.Sentence(12), tags); err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
	}

	var total int64
	a.orm.Model(&models.Post{}).Count(&total)
	a.logger.WithFields(logrus.Fields{"users": len(userIDs), "posts": total}).Info("seed finished")
	return nil
}
