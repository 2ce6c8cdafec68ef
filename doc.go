// Package neat is the root of tweann-go, a Go implementation of a NEAT style
// neuroevolution engine (Topology and Weight Evolving Artificial Neural
// Networks).
//
// The engine evolves both the structure and the weights of feed-forward
// networks. Genotypes carry historical markings (innovation numbers) handed
// out by an InnovationRegistry, so that structurally identical mutations made
// in the same generation line up during crossover. Populations are split into
// species by compatibility distance and fitness is shared inside each species.
//
// Packages:
//
//	neat          genotypes, mutation, crossover operators, speciation, the generation loop
//	neat/nn       feed-forward evaluation of a genotype
//	neat/archive  champion storage in memory or SQLite
//
// Basic usage:
//
//	config, err := neat.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	best, err := pop.Run(ctx, func(ctx context.Context, individuals []*neat.Individual) error {
//		for _, ind := range individuals {
//			net, err := nn.NewEvaluator(ind.Genotype())
//			if err != nil {
//				return err
//			}
//			ind.SetRawFitness(score(net))
//		}
//		return nil
//	})
package neat
