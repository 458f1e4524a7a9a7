// Package fill provides the Go definitions of the build-distribution service's
// data model and the error taxonomy shared by every stage of a publish attempt.
//
// # Overview
//
// A publish attempt pushes one build of a project to the remote service. It
// consists of three stages that always run in this order:
//
//  1. Reconcile: work out which local commits are new since the last build the
//     service already knows about for this version lineage.
//  2. Upload: send every artifact file to the service, one request per file.
//  3. Publish: submit a single PublishRecord that names the build, its commits
//     (oldest first) and the checksum and size of every artifact.
//
// The uploads and the record share one attempt id, so the service can tie the
// stored files to the metadata that references them.
//
// # Records
//
// PublishRecord values are immutable. They can only be produced by a
// RecordBuilder, which refuses to build a record with any required field unset:
//
//	record, err := fill.NewRecordBuilder().
//		ID(uuid.New()).
//		Project("paper").
//		Family("1.21").
//		Version("1.21.1").
//		BuildNumber(42).
//		Time(time.Now()).
//		Channel(fill.ChannelStable).
//		AddDownload("server", download).
//		Build()
//
// # Errors
//
// Every failure surfaces as a *Error carrying a Kind. Callers test the kind with
// IsKind rather than matching on message text:
//
//	if fill.IsKind(err, fill.KindUploadFailed) {
//		// the metadata record was never sent
//	}
package fill
