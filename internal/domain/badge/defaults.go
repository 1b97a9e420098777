package badge

import (
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// DefaultDefinitions is the built-in badge catalog, seeded into the store
// when no externally authored catalog exists. Production environments author
// the catalog out of band; this set keeps development and tests realistic.
func DefaultDefinitions() []Definition {
	return []Definition{
		// Lessons
		{
			ID: "first_lesson", Title: "First Steps", Description: "Complete your first lesson",
			Category: CategoryLessons, Rarity: RarityCommon,
			Criteria: Criteria{EventType: shared.EventFirstLesson, ProgressType: ProgressAchievement},
			IsActive: true,
		},
		{
			ID: "lessons_10", Title: "Getting Serious", Description: "Complete 10 lessons",
			Category: CategoryLessons, Rarity: RarityCommon,
			Criteria: Criteria{EventType: shared.EventLessonCompleted, TargetValue: 10, ProgressType: ProgressCumulative},
			IsActive: true,
		},
		{
			ID: "lessons_50", Title: "Dedicated Learner", Description: "Complete 50 lessons",
			Category: CategoryLessons, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventLessonCompleted, TargetValue: 50, ProgressType: ProgressCumulative},
			IsActive: true,
		},
		{
			ID: "lessons_250", Title: "Scholar", Description: "Complete 250 lessons",
			Category: CategoryLessons, Rarity: RarityEpic,
			Criteria: Criteria{EventType: shared.EventLessonCompleted, TargetValue: 250, ProgressType: ProgressCumulative},
			IsActive: true,
		},

		// Streaks (consecutive: mirrors the streak counter, never accumulated)
		{
			ID: "streak_3", Title: "Warming Up", Description: "Keep a 3-day streak",
			Category: CategoryStreaks, Rarity: RarityCommon,
			Criteria: Criteria{EventType: shared.EventStreakExtended, TargetValue: 3, ProgressType: ProgressConsecutive},
			IsActive: true,
		},
		{
			ID: "streak_7", Title: "One Full Week", Description: "Keep a 7-day streak",
			Category: CategoryStreaks, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventStreakExtended, TargetValue: 7, ProgressType: ProgressConsecutive},
			IsActive: true,
		},
		{
			ID: "streak_30", Title: "Habit Formed", Description: "Keep a 30-day streak",
			Category: CategoryStreaks, Rarity: RarityRare,
			Criteria: Criteria{EventType: shared.EventStreakExtended, TargetValue: 30, ProgressType: ProgressConsecutive},
			IsActive: true,
		},
		{
			ID: "streak_365", Title: "Year of Fire", Description: "Keep a 365-day streak",
			Category: CategoryStreaks, Rarity: RarityLegendary,
			Criteria: Criteria{EventType: shared.EventStreakExtended, TargetValue: 365, ProgressType: ProgressConsecutive},
			IsActive: true,
		},

		// Quizzes
		{
			ID: "quizzes_25", Title: "Quiz Whiz", Description: "Complete 25 quizzes",
			Category: CategoryQuizzes, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventQuizCompleted, TargetValue: 25, ProgressType: ProgressCumulative},
			IsActive: true,
		},
		{
			ID: "perfect_score", Title: "Flawless", Description: "Score 100% on a quiz",
			Category: CategoryQuizzes, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventPerfectScore, ProgressType: ProgressAchievement},
			IsActive: true,
		},
		{
			ID: "perfect_10", Title: "Perfectionist", Description: "Score 100% on 10 quizzes",
			Category: CategoryQuizzes, Rarity: RarityRare,
			Criteria: Criteria{EventType: shared.EventPerfectScore, TargetValue: 10, ProgressType: ProgressCumulative},
			IsActive: true,
		},

		// Pronunciation
		{
			ID: "pronunciation_20", Title: "Clear Speaker", Description: "Finish 20 pronunciation exercises",
			Category: CategoryPronunciation, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventPronunciationPractice, TargetValue: 20, ProgressType: ProgressCumulative},
			IsActive: true,
		},

		// Milestones (mirror the milestone value in the payload)
		{
			ID: "level_5", Title: "Moving Up", Description: "Reach level 5",
			Category: CategoryMilestones, Rarity: RarityCommon,
			Criteria: Criteria{EventType: shared.EventLevelUp, TargetValue: 5, ProgressType: ProgressMilestone},
			IsActive: true,
		},
		{
			ID: "level_10", Title: "Double Digits", Description: "Reach level 10",
			Category: CategoryMilestones, Rarity: RarityRare,
			Criteria: Criteria{EventType: shared.EventLevelUp, TargetValue: 10, ProgressType: ProgressMilestone},
			IsActive: true,
		},
		{
			ID: "level_25", Title: "Quarter Century", Description: "Reach level 25",
			Category: CategoryMilestones, Rarity: RarityEpic,
			Criteria: Criteria{EventType: shared.EventLevelUp, TargetValue: 25, ProgressType: ProgressMilestone},
			IsActive: true,
		},

		// Achievements
		{
			ID: "weekly_goal", Title: "Goal Getter", Description: "Meet your weekly goal",
			Category: CategoryAchievements, Rarity: RarityCommon,
			Criteria: Criteria{EventType: shared.EventWeeklyGoalMet, ProgressType: ProgressAchievement},
			IsActive: true,
		},
		{
			ID: "marathon", Title: "Marathon", Description: "Study for over an hour in one sitting",
			Category: CategoryAchievements, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventLongStudySession, ProgressType: ProgressAchievement},
			IsActive: true,
		},

		// Special (time-of-day)
		{
			ID: "early_bird", Title: "Early Bird", Description: "Practice before 7 AM",
			Category: CategorySpecial, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventEarlyBird, ProgressType: ProgressAchievement},
			IsActive: true,
		},
		{
			ID: "night_owl", Title: "Night Owl", Description: "Practice after midnight",
			Category: CategorySpecial, Rarity: RarityUncommon,
			Criteria: Criteria{EventType: shared.EventNightOwl, ProgressType: ProgressAchievement},
			IsActive: true,
		},
	}
}
