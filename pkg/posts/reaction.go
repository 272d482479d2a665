package posts

import "fmt"

// ApplyReaction moves the user's reaction on p to action. It reports false,
// leaving p untouched, when the user already holds that reaction.
func ApplyReaction(p *Post, username string, action Action) (bool, error) {
	if !action.Valid() {
		return false, ErrInvalidAction
	}

	prev, reacted := p.Reactions[username]
	if reacted && prev == action {
		return false, nil
	}

	likes, dislikes := p.Likes, p.Dislikes
	if reacted {
		switch prev {
		case Like:
			likes--
		case Dislike:
			dislikes--
		default:
			return false, fmt.Errorf("%w: user %q holds unknown reaction %q", ErrInconsistentState, username, prev)
		}
	}

	if likes < 0 || dislikes < 0 {
		return false, fmt.Errorf("%w: likes=%d dislikes=%d after removing %q by %q",
			ErrInconsistentState, likes, dislikes, prev, username)
	}

	if action == Like {
		likes++
	} else {
		dislikes++
	}

	if p.Reactions == nil {
		p.Reactions = make(map[string]Action)
	}
	p.Likes, p.Dislikes = likes, dislikes
	p.Reactions[username] = action

	return true, nil
}

// CheckCounters verifies that likes and dislikes match the reaction map.
func CheckCounters(p *Post) error {
	likes, dislikes := 0, 0
	for _, a := range p.Reactions {
		switch a {
		case Like:
			likes++
		case Dislike:
			dislikes++
		}
	}

	if likes != p.Likes || dislikes != p.Dislikes {
		return fmt.Errorf("%w: post %s has likes=%d dislikes=%d, reactions say %d/%d",
			ErrInconsistentState, p.ID, p.Likes, p.Dislikes, likes, dislikes)
	}

	return nil
}
