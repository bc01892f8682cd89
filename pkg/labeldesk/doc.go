// Package labeldesk is an embeddable Go client for the labeldesk label store.
//
// It gives pipelines and notebooks the same operations the dashboard uses:
// list clusters that still need labels, project a cluster to 2D, read stored
// records and commit labels. Any backend the server supports works:
//
//	client, _ := labeldesk.New(ctx, labeldesk.WithSQLite("data/labeldesk.db"))
//	defer client.Close()
//
//	ids, _ := client.Clusters(ctx)
//	proj, _ := client.Project(ctx, ids[0])
//	n, _ := client.Commit(ctx, []labeldesk.Annotation{
//	    {AccountID: proj.Points[0].AccountID, ClusterID: ids[0], Label: labeldesk.Bot},
//	})
package labeldesk
