// Package draft applies mutations to immutable state trees by copy-on-write.
//
// A Mutation receives a *Draft and edits it in place-looking style:
//
//	res, err := draft.Produce(current, func(d *draft.Draft) error {
//	    if err := d.Set(tree.Path{"text"}, "b"); err != nil {
//	        return err
//	    }
//	    return d.Increment(tree.Path{"num"}, 1)
//	})
//
// Every write copies only the nodes on the written path and relinks their
// parents. Any subtree not on a written path is returned with the same
// pointer it had in current. current itself is never modified, and a failed
// mutation (error or panic) produces no result at all.
package draft
