package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

const nullCommitSHA = "0000000000000000000000000000000000000000"

var (
	postPathRegex = regexp.MustCompile(`^posts/(\d+)-.*\.md$`)
)

// SyncService publishes posts pushed to a git repository.
// Only pushes to the main branch are applied. Writes go through the PostService write path,
// so they share its per-post locking and events, but they bypass its write policy.
type SyncService struct {
	posts          *PostService
	sourceRepo     domain.SourceRepository
	mainBranchName string

	// last queued worker per post id; a worker starts once its predecessor is done
	queueMu sync.Mutex
	queue   map[string]chan struct{}

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

// postFile is the file a post is loaded from and the commit to read it at
type postFile struct {
	path      string
	commitSHA string
}

func NewSyncService(posts *PostService, sourceRepo domain.SourceRepository, mainBranchName string) *SyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncService{
		posts:          posts,
		sourceRepo:     sourceRepo,
		mainBranchName: mainBranchName,
		queue:          make(map[string]chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		wg:             &sync.WaitGroup{},
	}
}

// Close cancels in-flight workers and waits for them to exit
func (s *SyncService) Close() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

// Wait blocks until all workers spawned so far have finished
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// HandlePushEvent validates a push and spawns workers for the affected posts.
// It returns before the posts are written; workers use the service's lifecycle context,
// not the request context.
func (s *SyncService) HandlePushEvent(evt *github.PushEvent) error {
	if evt.GetRef() != "refs/heads/"+s.mainBranchName {
		log.Debug().Str("ref", evt.GetRef()).Msg("Ignoring push to non-main branch")
		return nil
	}

	var commits []*github.RepositoryCommit
	if before := evt.GetBefore(); before != "" && before != nullCommitSHA {
		var err error
		commits, err = s.sourceRepo.GetCommitsInRange(s.ctx, before, evt.GetAfter())
		if err != nil {
			return fmt.Errorf("failed to get commits in range %s...%s: %w", before, evt.GetAfter(), err)
		}
	} else {
		// new branch or first commit
		headCommit, err := s.sourceRepo.GetCommit(s.ctx, evt.GetAfter())
		if err != nil {
			return fmt.Errorf("failed to get commit %s: %w", evt.GetAfter(), err)
		}
		commits = []*github.RepositoryCommit{headCommit}
	}

	postsToProcess, postsToRemove, err := s.analyzeCommitFiles(commits)
	if err != nil {
		return fmt.Errorf("failed to analyze commits: %w", err)
	}

	for postID, filePath := range postsToRemove {
		s.enqueue(postID, func(ctx context.Context) {
			s.removePost(ctx, postID, filePath)
		})
	}

	for postID, file := range postsToProcess {
		s.enqueue(postID, func(ctx context.Context) {
			s.processPostFile(ctx, postID, file.path, file.commitSHA)
		})
	}

	return nil
}

// enqueue runs work for a post after every worker queued earlier for the same post.
// Workers for different posts run concurrently.
func (s *SyncService) enqueue(postID string, work func(ctx context.Context)) {
	done := make(chan struct{})

	s.queueMu.Lock()
	prev := s.queue[postID]
	s.queue[postID] = done
	s.queueMu.Unlock()

	s.wg.Go(func() {
		defer func() {
			s.queueMu.Lock()
			if s.queue[postID] == done {
				delete(s.queue, postID)
			}
			s.queueMu.Unlock()
			close(done)
		}()

		if prev != nil {
			select {
			case <-prev:
			case <-s.ctx.Done():
				return
			}
		}
		work(s.ctx)
	})
}

// analyzeCommitFiles walks commits oldest first and folds their changes by post id. It returns
// the posts to (re)load with the file and commit to read, and the posts to remove with the file
// that was removed. No post id is in both.
func (s *SyncService) analyzeCommitFiles(commits []*github.RepositoryCommit) (map[string]postFile, map[string]string, error) {
	postsToProcess := make(map[string]postFile)
	postsToRemove := make(map[string]string)

	for _, commitSummary := range commits {
		fullCommit, err := s.sourceRepo.GetCommit(s.ctx, commitSummary.GetSHA())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get full commit %s: %w", commitSummary.GetSHA(), err)
		}

		// removals first, so a file that replaces another with the same id within one commit wins
		for _, file := range fullCommit.Files {
			if file.GetStatus() == "removed" {
				handleCommitFile(file.GetFilename(), file.GetStatus(), file.GetPreviousFilename(), fullCommit.GetSHA(), postsToProcess, postsToRemove)
			}
		}
		for _, file := range fullCommit.Files {
			if file.GetStatus() != "removed" {
				handleCommitFile(file.GetFilename(), file.GetStatus(), file.GetPreviousFilename(), fullCommit.GetSHA(), postsToProcess, postsToRemove)
			}
		}
	}
	return postsToProcess, postsToRemove, nil
}

// handleCommitFile folds one changed file into the pending sets. Later changes win.
// A removal only applies when the removed file is the one the post would be loaded from.
func handleCommitFile(
	path string,
	status string,
	previousPath string,
	commitSHA string,
	postsToProcess map[string]postFile,
	postsToRemove map[string]string,
) {
	load := func(p string) {
		if !isPostFile(p) {
			return
		}
		postID := extractPostID(p)
		postsToProcess[postID] = postFile{path: p, commitSHA: commitSHA}
		delete(postsToRemove, postID)
	}

	drop := func(p string) {
		if !isPostFile(p) {
			return
		}
		postID := extractPostID(p)
		if pending, ok := postsToProcess[postID]; ok {
			if pending.path != p {
				return
			}
			delete(postsToProcess, postID)
		}
		postsToRemove[postID] = p
	}

	switch status {
	case "added", "modified", "changed":
		load(path)
	case "removed":
		drop(path)
	case "renamed":
		if extractPostID(previousPath) != extractPostID(path) {
			drop(previousPath)
		}
		load(path)
	}
}

// processPostFile loads one post file and writes it through the post service
func (s *SyncService) processPostFile(ctx context.Context, postID string, path string, commitSHA string) {
	markdownContent, err := s.sourceRepo.GetFileContents(ctx, path, commitSHA)
	if err != nil {
		log.Error().Err(err).Str("path", path).Str("commitSHA", commitSHA).Msg("Failed to get file contents")
		return
	}

	update := domain.PostUpdate{
		Title: extractPostTitle(markdownContent),
		Body:  string(markdownContent),
	}

	if _, err := s.posts.upsert(ctx, postID, update); err != nil {
		log.Error().Err(err).Str("postID", postID).Msg("Failed to upsert post")
		return
	}

	log.Info().Str("postID", postID).Str("repo", s.sourceRepo.GetRepoFullName()).Str("commitSHA", commitSHA).Msg("Synced post")
}

func (s *SyncService) removePost(ctx context.Context, postID string, path string) {
	err := s.posts.remove(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Debug().Str("postID", postID).Str("path", path).Msg("Removed post file had no stored post")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("postID", postID).Str("path", path).Msg("Failed to remove post")
		return
	}

	log.Info().Str("postID", postID).Str("path", path).Msg("Removed post")
}

// isPostFile checks if a file path is a valid post file in the posts/ directory
// Valid format: posts/NNN-title-of-post.md where NNN is one or more digits
func isPostFile(path string) bool {
	return postPathRegex.MatchString(path)
}

// extractPostID extracts the numeric ID from a post filename
// Example: "posts/001-my-post.md" -> "001"
func extractPostID(path string) string {
	matches := postPathRegex.FindStringSubmatch(path)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}
